package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/okarpov/driftchat-server/internal/proto"
)

// Smoke client: registers (or logs in) a user over REST, connects to the
// websocket endpoint and sends a login frame plus an optional message.
func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	apiAddr := flag.String("api", "http://localhost:8080", "HTTP API base URL")
	wsAddr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "tester", "username")
	password := flag.String("password", "smoketest1", "password")
	to := flag.String("to", "", "recipient for a test message (optional)")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 10*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := obtainToken(ctx, *apiAddr, *user, *password)
	if err != nil {
		return err
	}

	conn, _, err := websocket.Dial(ctx, *wsAddr, &websocket.DialOptions{
		HTTPHeader: stdhttp.Header{"Authorization": []string{"Bearer " + token}},
	})
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(frameType string, data any) error {
		payload, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			return fmt.Errorf("marshal %s: %w", frameType, marshalErr)
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: frameType, Data: payload}); writeErr != nil {
			return fmt.Errorf("send %s: %w", frameType, writeErr)
		}
		return nil
	}

	if err := send(proto.InboundTypeLogin, proto.LoginData{Username: *user}); err != nil {
		return err
	}

	if *to != "" {
		if err := send(proto.InboundTypeMsg, proto.MsgData{To: *to, Content: *text}); err != nil {
			return err
		}
	}

	fmt.Printf("Connected as %s, waiting for events (Ctrl+C or timeout to stop)\n", *user)

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		switch {
		case outbound.Error != nil:
			fmt.Printf("Error frame: code=%s msg=%s\n", outbound.Error.Code, outbound.Error.Msg)
		case outbound.Event != "":
			fmt.Printf("Event %s: %s\n", outbound.Event, string(outbound.Data))
		default:
			fmt.Printf("Frame: type=%s\n", outbound.Type)
		}
	}
}

// obtainToken registers the user, falling back to login when the username is
// already taken.
func obtainToken(ctx context.Context, apiAddr, user, password string) (string, error) {
	token, status, err := postCredentials(ctx, apiAddr+"/api/register", user, password)
	if err != nil {
		return "", err
	}
	if status == stdhttp.StatusConflict {
		token, status, err = postCredentials(ctx, apiAddr+"/api/login", user, password)
		if err != nil {
			return "", err
		}
	}
	if token == "" {
		return "", fmt.Errorf("no token in response (status %d)", status)
	}
	return token, nil
}

func postCredentials(ctx context.Context, url, user, password string) (string, int, error) {
	body, err := json.Marshal(map[string]string{"username": user, "password": password})
	if err != nil {
		return "", 0, fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := stdhttp.NewRequestWithContext(ctx, stdhttp.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := stdhttp.DefaultClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", resp.StatusCode, nil
	}
	return parsed.Token, resp.StatusCode, nil
}
