package http

import (
	"context"
	"encoding/json"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/core"
	"github.com/vovakirdan/chatrelay/internal/dice"
	"github.com/vovakirdan/chatrelay/internal/proto"
	"github.com/vovakirdan/chatrelay/internal/store/memory"
)

type testEnv struct {
	ts    *httptest.Server
	store *memory.Store
	wsURL string
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error,omitempty"`
}

func startTestServer(t *testing.T, diceHandler stdhttp.Handler, mutate func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	diceServer := httptest.NewServer(diceHandler)
	t.Cleanup(diceServer.Close)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.DiceURI = diceServer.URL + "/"
	cfg.RateLimitPerMinute = 0
	if mutate != nil {
		mutate(&cfg)
	}

	disabledLogger := zerolog.New(io.Discard)
	st := memory.New()
	hub := core.NewHub(st, dice.NewClient(cfg.DiceURI, cfg.DiceTimeout), nil, &disabledLogger,
		core.WithDiceTimeout(cfg.DiceTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		hub.Wait()
	})

	server := NewServer(hub, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		ts:    ts,
		store: st,
		wsURL: strings.Replace(ts.URL, "http", "ws", 1) + "/ws",
	}
}

func fixedDice(value int) stdhttp.Handler {
	r := gin.New()
	dice.NewHandlers(func() int { return value }).Register(r)
	return r
}

func (e *testEnv) dial(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, e.wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// dialReady dials and waits until the server side is registered with the hub.
// An unknown event is answered by the read loop, which only starts after
// registration.
func (e *testEnv) dialReady(t *testing.T, ctx context.Context) *websocket.Conn {
	t.Helper()

	conn := e.dial(t, ctx)
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: "ready?"}); err != nil {
		t.Fatalf("send probe: %v", err)
	}
	if f := readFrame(t, ctx, conn); f.Error == nil || f.Error.Code != core.ErrCodeInvalidMessage {
		t.Fatalf("unexpected probe reply: %+v", f)
	}
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, user, msg string) {
	t.Helper()

	payload, _ := json.Marshal(proto.MessageData{User: user, Msg: msg})
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.InboundEventMessage, Data: payload}); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) frame {
	t.Helper()

	var f frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func readChat(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.ChatData {
	t.Helper()

	f := readFrame(t, ctx, conn)
	if f.Event != proto.OutboundEventChat {
		t.Fatalf("expected chat event, got %q (error %+v)", f.Event, f.Error)
	}
	var data proto.ChatData
	if err := json.Unmarshal(f.Data, &data); err != nil {
		t.Fatalf("unmarshal chat data: %v", err)
	}
	return data
}

func waitForStored(t *testing.T, st *memory.Store, n int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st.Len() == n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected %d stored messages, have %d", n, st.Len())
}

func TestHealthEndpoint(t *testing.T) {
	env := startTestServer(t, fixedDice(1), nil)

	resp, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestIndexPage(t *testing.T) {
	env := startTestServer(t, fixedDice(1), nil)

	resp, err := env.ts.Client().Get(env.ts.URL + "/")
	if err != nil {
		t.Fatalf("page request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("unexpected response: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), "/ws") || !strings.Contains(string(body), `id="messages"`) {
		t.Fatalf("page does not look like the chat client")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := startTestServer(t, fixedDice(1), nil)

	// Touch a route so the request counter has a sample.
	if resp, err := env.ts.Client().Get(env.ts.URL + "/health"); err == nil {
		resp.Body.Close()
	}

	resp, err := env.ts.Client().Get(env.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "chatrelay_http_requests_total") {
		t.Fatalf("expected chatrelay metrics in output")
	}
}

func TestChatBroadcastAndReplay(t *testing.T) {
	env := startTestServer(t, fixedDice(1), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dialReady(t, ctx)
	connB := env.dialReady(t, ctx)

	before := time.Now().UnixMilli()
	send(t, ctx, connA, "alice", "hi")

	for name, conn := range map[string]*websocket.Conn{"A": connA, "B": connB} {
		got := readChat(t, ctx, conn)
		if got.User != "alice" || got.Msg != "hi" {
			t.Fatalf("client %s: unexpected chat %+v", name, got)
		}
		if got.Time < before || got.Time > time.Now().UnixMilli() {
			t.Fatalf("client %s: time %d not assigned at receipt", name, got.Time)
		}
	}

	waitForStored(t, env.store, 1)

	connC := env.dial(t, ctx)
	replayed := readChat(t, ctx, connC)
	if replayed.User != "alice" || replayed.Msg != "hi" {
		t.Fatalf("unexpected replay: %+v", replayed)
	}

	// Exactly one stored message: a live message sent now must be the next frame.
	send(t, ctx, connC, "carol", "late")
	if next := readChat(t, ctx, connC); next.Msg != "late" {
		t.Fatalf("expected live message after replay, got %+v", next)
	}
}

func TestDiceRoll(t *testing.T) {
	env := startTestServer(t, fixedDice(4), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := env.dialReady(t, ctx)
	connB := env.dialReady(t, ctx)

	send(t, ctx, connA, "alice", "/diceroll")

	for _, conn := range []*websocket.Conn{connA, connB} {
		got := readChat(t, ctx, conn)
		if got.User != "System" || got.Msg != "alice requested a dice roll: 4" {
			t.Fatalf("unexpected dice event: %+v", got)
		}
	}

	time.Sleep(50 * time.Millisecond)
	if env.store.Len() != 0 {
		t.Fatalf("dice result must not be stored, have %d", env.store.Len())
	}
}

func TestDiceRollFailureIsSilent(t *testing.T) {
	failing := stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusServiceUnavailable)
	})
	env := startTestServer(t, failing, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)

	send(t, ctx, conn, "alice", "/diceroll")
	time.Sleep(100 * time.Millisecond)
	send(t, ctx, conn, "alice", "after")

	if got := readChat(t, ctx, conn); got.Msg != "after" {
		t.Fatalf("expected no dice event, got %+v", got)
	}
	waitForStored(t, env.store, 1)
}

func TestRejectsInvalidFrames(t *testing.T) {
	env := startTestServer(t, fixedDice(1), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)

	send(t, ctx, conn, "", "hi")
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: "typing"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: proto.InboundEventMessage, Data: json.RawMessage(`"oops"`)}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// Empty fields are rejected by the hub, decoding problems by the handler,
	// so the three replies may interleave.
	codes := make(map[string]int)
	for range 3 {
		f := readFrame(t, ctx, conn)
		if f.Event != proto.OutboundEventError || f.Error == nil {
			t.Fatalf("expected error frame, got %+v", f)
		}
		codes[f.Error.Code]++
	}
	if codes[core.ErrCodeBadRequest] != 1 || codes[core.ErrCodeInvalidMessage] != 2 {
		t.Fatalf("unexpected error codes: %v", codes)
	}

	if env.store.Len() != 0 {
		t.Fatalf("invalid frames must not be stored")
	}
}

func TestRateLimit(t *testing.T) {
	env := startTestServer(t, fixedDice(1), func(cfg *config.Config) {
		cfg.RateLimitPerMinute = 1
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := env.dial(t, ctx)

	send(t, ctx, conn, "alice", "one")
	send(t, ctx, conn, "alice", "two")

	var sawChat, sawLimit bool
	for range 2 {
		f := readFrame(t, ctx, conn)
		switch {
		case f.Event == proto.OutboundEventChat:
			sawChat = true
		case f.Error != nil && f.Error.Code == core.ErrCodeRateLimited:
			sawLimit = true
		}
	}
	if !sawChat || !sawLimit {
		t.Fatalf("expected one chat and one rate_limited frame, chat=%v limited=%v", sawChat, sawLimit)
	}
}

func TestWebSocketUpgradeThroughServer(t *testing.T) {
	env := startTestServer(t, fixedDice(1), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, resp, err := websocket.Dial(ctx, env.wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if resp.StatusCode != stdhttp.StatusSwitchingProtocols {
		t.Fatalf("unexpected upgrade status: %d", resp.StatusCode)
	}

	// The connection must carry valid frames both ways.
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: "ping"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	f := readFrame(t, ctx, conn)
	if f.Event != proto.OutboundEventError || f.Error == nil || f.Error.Code != core.ErrCodeInvalidMessage {
		t.Fatalf("unexpected reply: %+v", f)
	}

	// gin still serves the remaining routes behind the mux.
	health, err := env.ts.Client().Get(env.ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != stdhttp.StatusOK {
		t.Fatalf("unexpected health status: %d", health.StatusCode)
	}
}
