package sync

import (
	"bufio"
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestTCPSubscriberReceivesEvents(t *testing.T) {
	hub := NewHub()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewServer(ln.Addr().String(), hub).Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	r := bufio.NewReader(conn)

	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	var w WelcomeEvent
	if err := json.Unmarshal([]byte(line), &w); err != nil || w.Type != Welcome || w.Transport != "tcp" {
		t.Fatalf("welcome = %q (%v)", line, err)
	}

	waitFor(t, func() bool { return hub.Stats().TCPClients == 1 })

	hub.BroadcastJSON(CatalogEvent{Type: CatalogRefreshed, RunID: "r1", Sort: "POPULARITY_DESC", Page: 3, PerPage: 50, Records: 50})

	line, err = r.ReadString('\n')
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var ev CatalogEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != CatalogRefreshed || ev.RunID != "r1" || ev.Records != 50 {
		t.Fatalf("event = %+v", ev)
	}

	_ = conn.Close()
	waitFor(t, func() bool { return hub.Stats().TCPClients == 0 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestWebSocketSubscriber(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws", WSHandler(hub))
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, msg, err := ws.ReadMessage()
	if err != nil || !strings.Contains(string(msg), `"transport":"websocket"`) {
		t.Fatalf("welcome = %q (%v)", msg, err)
	}

	waitFor(t, func() bool { return hub.Stats().WSClients == 1 })
	hub.BroadcastJSON(CatalogEvent{Type: CatalogRefreshed, RunID: "r2"})

	_, msg, err = ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var ev CatalogEvent
	if err := json.Unmarshal(msg, &ev); err != nil || ev.RunID != "r2" {
		t.Fatalf("event = %q (%v)", msg, err)
	}
}

func TestBroadcastWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	hub.BroadcastJSON(CatalogEvent{Type: CatalogRefreshed})
	if s := hub.Stats(); s.TCPClients != 0 || s.WSClients != 0 {
		t.Fatalf("stats = %+v", s)
	}
}
