package notify

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// testSocketServer is a minimal stand-in for the booking API's notification
// WebSocket endpoint
type testSocketServer struct {
	t        *testing.T
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn

	dials            atomic.Int32
	closeImmediately atomic.Bool
	rejectUpgrades   atomic.Bool
}

func newTestSocketServer(t *testing.T) *testSocketServer {
	t.Helper()

	s := &testSocketServer{
		t: t,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, notificationSocketPath) {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("token") == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		if s.rejectUpgrades.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.dials.Add(1)

		if s.closeImmediately.Load() {
			_ = conn.Close()
			return
		}

		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	}))
	t.Cleanup(s.srv.Close)

	return s
}

// baseURL returns the http origin; the connection manager rewrites it to ws
func (s *testSocketServer) baseURL() string {
	return s.srv.URL
}

func (s *testSocketServer) dialCount() int {
	return int(s.dials.Load())
}

// push sends a raw frame on the most recently accepted connection, waiting
// briefly for the handshake goroutine to register it
func (s *testSocketServer) push(raw string) {
	deadline := time.Now().Add(3 * time.Second)
	for {
		s.mu.Lock()
		if len(s.conns) > 0 {
			conn := s.conns[len(s.conns)-1]
			s.mu.Unlock()
			require.NoError(s.t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
			return
		}
		s.mu.Unlock()
		if time.Now().After(deadline) {
			s.t.Fatal("no live connection to push on")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// closeAll drops every accepted connection server-side
func (s *testSocketServer) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.conns {
		_ = conn.Close()
	}
	s.conns = nil
}
