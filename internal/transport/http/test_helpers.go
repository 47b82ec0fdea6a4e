package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/okarpov/driftchat-server/internal/auth"
	"github.com/okarpov/driftchat-server/internal/config"
	"github.com/okarpov/driftchat-server/internal/core"
	"github.com/okarpov/driftchat-server/internal/log"
	"github.com/okarpov/driftchat-server/internal/proto"
	"github.com/okarpov/driftchat-server/internal/service/relationship"
	"github.com/okarpov/driftchat-server/internal/store/sqlite"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.JWTSecret = "testsecret"
	cfg.JWTIssuer = "test"
	cfg.JWTAudience = "test"
	return cfg
}

// startTestServer wires the full stack against an in-memory store and serves
// it from an httptest server.
func startTestServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.JWTTTL,
	}
	authService := auth.NewService(st, jwtConfig)

	presence := core.NewPresence()
	ledger := core.NewLedger()

	deps := Deps{
		Auth:          authService,
		Relationships: relationship.New(st, presence, ledger, log.Nop()),
		Router:        core.NewRouter(presence),
		Lifecycle:     core.NewLifecycle(presence, ledger),
	}

	server := NewServer(deps, cfg, log.Nop())
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path, token string, body any) *stdhttp.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request body: %v", err)
	}

	req, err := stdhttp.NewRequest(stdhttp.MethodPost, ts.URL+path, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path, token string) *stdhttp.Response {
	t.Helper()

	req, err := stdhttp.NewRequest(stdhttp.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *stdhttp.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return out
}

// registerUser creates a user over the REST API and returns its token.
func registerUser(t *testing.T, ts *httptest.Server, username, password string) string {
	t.Helper()

	resp := postJSON(t, ts, "/api/register", "", RegisterRequest{
		Username: username,
		Password: password,
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}

	profile := decodeBody[ProfileResponse](t, resp)
	if profile.Token == "" {
		t.Fatalf("register %s: empty token", username)
	}
	return profile.Token
}

// dialWS opens a websocket connection authenticated with the given token and
// sends the login frame.
func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server, token, username string) *websocket.Conn {
	t.Helper()

	conn := dialWSRaw(t, ctx, ts, token)
	sendFrame(t, ctx, conn, proto.InboundTypeLogin, proto.LoginData{Username: username})
	return conn
}

func dialWSRaw(t *testing.T, ctx context.Context, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	opts := &websocket.DialOptions{HTTPClient: ts.Client()}
	if token != "" {
		opts.HTTPHeader = stdhttp.Header{"Authorization": []string{"Bearer " + token}}
	}

	conn, _, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func sendFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, frameType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s data: %v", frameType, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: frameType, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", frameType, err)
	}
}

// wireOutbound mirrors proto.Outbound with raw data so tests can decode the
// payload per event.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func readFrameErr(ctx context.Context, conn *websocket.Conn, out *wireOutbound) error {
	return wsjson.Read(ctx, conn, out)
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) wireOutbound {
	t.Helper()

	var out wireOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// readEvent reads frames until one with the wanted event name arrives,
// failing on error frames or after too many unrelated frames.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	for i := 0; i < 10; i++ {
		out := readFrame(t, ctx, conn)
		if out.Type == proto.OutboundTypeError {
			t.Fatalf("unexpected error frame while waiting for %s: %+v", event, out.Error)
		}
		if out.Event == event {
			return out.Data
		}
	}
	t.Fatalf("event %s never arrived", event)
	return nil
}

func readErrorFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) *proto.Error {
	t.Helper()

	out := readFrame(t, ctx, conn)
	if out.Type != proto.OutboundTypeError || out.Error == nil {
		t.Fatalf("expected error frame, got %+v", out)
	}
	return out.Error
}
