package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/okarpov/driftchat-server/internal/proto"
)

// Interactive CLI chat client. Commands:
//
//	/add <user>     send a friend request
//	/accept <user>  accept a pending friend request
//	/msg <user> <text>  send a direct message
func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	apiAddr := flag.String("api", "http://localhost:8080", "HTTP API base URL")
	wsAddr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	password := flag.String("password", "clipass1", "password")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
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

	send := func(frameType string, data any) {
		payload, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			log.Printf("marshal %s: %v", frameType, marshalErr)
			return
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: frameType, Data: payload}); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	send(proto.InboundTypeLogin, proto.LoginData{Username: *user})

	fmt.Printf("Connected to %s as %s\n", *wsAddr, *user)
	fmt.Println("Commands: /add <user>, /accept <user>, /msg <user> <text>. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, send)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Error != nil {
			fmt.Printf("! %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventNameMessage:
			var evt proto.EventMessage
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			fmt.Printf("%s: %s\n", evt.From, evt.Content)
		case proto.EventNameFriendRequest:
			var evt proto.EventFriendRequest
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal friend_request: %v", err)
				continue
			}
			fmt.Printf("* friend request from %s (use /accept %s)\n", evt.From, evt.From)
		case proto.EventNameFriendAccepted:
			var evt proto.EventFriendAccepted
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal friend_accepted: %v", err)
				continue
			}
			fmt.Printf("* %s accepted your friend request\n", evt.By)
		case proto.EventNameFriendsUpdate:
			var evt proto.EventFriendsUpdate
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal friends_update: %v", err)
				continue
			}
			fmt.Printf("* friends: %s\n", strings.Join(evt.Friends, ", "))
		default:
			fmt.Printf("event=%s data=%s\n", outbound.Event, string(outbound.Data))
		}
	}
}

func writeLoop(ctx context.Context, send func(string, any)) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			switch {
			case strings.HasPrefix(text, "/add "):
				send(proto.InboundTypeFriendRequest, proto.FriendRequestData{To: strings.TrimSpace(text[len("/add "):])})
			case strings.HasPrefix(text, "/accept "):
				send(proto.InboundTypeAcceptFriend, proto.AcceptFriendData{From: strings.TrimSpace(text[len("/accept "):])})
			case strings.HasPrefix(text, "/msg "):
				rest := strings.TrimSpace(text[len("/msg "):])
				parts := strings.SplitN(rest, " ", 2)
				if len(parts) != 2 {
					fmt.Println("usage: /msg <user> <text>")
					continue
				}
				send(proto.InboundTypeMsg, proto.MsgData{To: parts[0], Content: parts[1]})
			default:
				fmt.Println("unknown command, use /add, /accept or /msg")
			}
		}
	}
}

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
