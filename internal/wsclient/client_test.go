package wsclient

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devloop-tools/eventbus/internal/envelope"
)

func TestURLIncludesTypeFilterAsQueryParam(t *testing.T) {
	c := New(Config{Host: "127.0.0.1", Port: 4100, Type: "hook.stop"})
	u, err := url.Parse(c.url())
	if err != nil {
		t.Fatalf("failed to parse client URL: %v", err)
	}
	if u.Scheme != "ws" || u.Path != "/ws" {
		t.Errorf("unexpected scheme/path: %s %s", u.Scheme, u.Path)
	}
	if got := u.Query().Get("type"); got != "hook.stop" {
		t.Errorf("type query param = %q, want hook.stop", got)
	}
}

func TestURLOmitsTypeFilterWhenUnset(t *testing.T) {
	c := New(Config{Host: "127.0.0.1", Port: 4100})
	u, err := url.Parse(c.url())
	if err != nil {
		t.Fatalf("failed to parse client URL: %v", err)
	}
	if u.RawQuery != "" {
		t.Errorf("expected no query string, got %q", u.RawQuery)
	}
}

func TestBackoffDelayGrowsAndCaps(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 0; attempt < 3; attempt++ {
		d := backoffDelay(attempt)
		if d < baseBackoff*time.Duration(1<<uint(attempt)) {
			t.Errorf("attempt %d: delay %v below backoff floor", attempt, d)
		}
		if d <= prev && attempt > 0 {
			t.Errorf("attempt %d: delay %v did not grow past previous %v", attempt, d, prev)
		}
		prev = d
	}

	if d := backoffDelay(20); d > maxBackoff {
		t.Errorf("backoffDelay(20) = %v, want capped at %v", d, maxBackoff)
	}
}

func upgradingTestServer(t *testing.T, onConn func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		onConn(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hostPort(t *testing.T, srv *httptest.Server) (string, int) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse test server URL: %v", err)
	}
	idx := strings.LastIndex(u.Host, ":")
	if idx < 0 {
		t.Fatalf("test server host %q has no port", u.Host)
	}
	port, err := strconv.Atoi(u.Host[idx+1:])
	if err != nil {
		t.Fatalf("failed to parse port: %v", err)
	}
	return u.Host[:idx], port
}

func TestClientReceivesAndParsesEnvelope(t *testing.T) {
	const payload = `{"schemaVersion":"1.0.0","id":"01ARZ3NDEKTSV4RRFFQ69G5FAV","timestamp":"2026-01-01T00:00:00.000Z","type":"hook.stop","app":"demo","appRoot":"/tmp/demo","source":"hook","correlationId":"abcdefgh","data":{}}`

	srv := upgradingTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(payload))
		time.Sleep(50 * time.Millisecond)
		conn.Close()
	})
	host, port := hostPort(t, srv)

	var mu sync.Mutex
	var gotType string
	done := make(chan struct{})

	c := New(Config{
		Host: host,
		Port: port,
		OnEvent: func(e *envelope.Envelope) {
			mu.Lock()
			gotType = e.Type
			mu.Unlock()
			close(done)
		},
	})
	c.Start()
	defer c.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}

	mu.Lock()
	defer mu.Unlock()
	if gotType != "hook.stop" {
		t.Errorf("envelope type = %q, want hook.stop", gotType)
	}
}

func TestClientSurfacesParseErrorsWithoutClosing(t *testing.T) {
	srv := upgradingTestServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		time.Sleep(200 * time.Millisecond)
		conn.Close()
	})
	host, port := hostPort(t, srv)

	var errs atomic.Int32
	errCh := make(chan struct{}, 1)
	c := New(Config{
		Host: host,
		Port: port,
		OnError: func(err error) {
			errs.Add(1)
			select {
			case errCh <- struct{}{}:
			default:
			}
		},
	})
	c.Start()
	defer c.Close()

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for parse error callback")
	}

	if errs.Load() == 0 {
		t.Error("expected at least one OnError call for malformed message")
	}
}

func TestCloseStopsReconnectLoop(t *testing.T) {
	srv := upgradingTestServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})
	host, port := hostPort(t, srv)

	var opens atomic.Int32
	c := New(Config{
		Host:          host,
		Port:          port,
		AutoReconnect: true,
		OnOpen:        func() { opens.Add(1) },
	})
	c.Start()
	time.Sleep(100 * time.Millisecond)
	c.Close()

	n := opens.Load()
	time.Sleep(200 * time.Millisecond)
	if opens.Load() != n {
		t.Errorf("expected no further opens after Close, got %d -> %d", n, opens.Load())
	}
}

func TestWithoutAutoReconnectStopsAfterOneClose(t *testing.T) {
	srv := upgradingTestServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})
	host, port := hostPort(t, srv)

	var opens atomic.Int32
	c := New(Config{
		Host:   host,
		Port:   port,
		OnOpen: func() { opens.Add(1) },
	})
	c.Start()
	time.Sleep(150 * time.Millisecond)

	if opens.Load() != 1 {
		t.Errorf("opens = %d, want exactly 1 without AutoReconnect", opens.Load())
	}
	c.Close()
}
