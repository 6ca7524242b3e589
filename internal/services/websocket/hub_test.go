package websocket

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"contours/internal/config"
	"contours/internal/logger"

	"github.com/gorilla/websocket"
)

func setupHub(t *testing.T) (*HubService, *httptest.Server) {
	t.Helper()

	log := logger.NewLogger(&config.Config{LogDirectory: filepath.Join(t.TempDir(), "logs")})
	hub := NewHubService(log)
	go hub.Run()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		hub.Register(conn)
	}))

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return hub, server
}

func waitForClients(t *testing.T, hub *HubService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", n, hub.GetClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesViewers(t *testing.T) {
	hub, server := setupHub(t)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	var conns []*websocket.Conn
	for i := 0; i < 2; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		defer conn.Close()
		conns = append(conns, conn)
	}
	waitForClients(t, hub, 2)

	if err := hub.BroadcastJSON(map[string]int{"regions": 3}); err != nil {
		t.Fatalf("BroadcastJSON failed: %v", err)
	}

	for i, conn := range conns {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Viewer %d read failed: %v", i, err)
		}
		if string(msg) != `{"regions":3}` {
			t.Errorf("Viewer %d got %s", i, msg)
		}
	}
}

func TestHub_BroadcastWithoutViewers(t *testing.T) {
	hub, _ := setupHub(t)

	for i := 0; i < 50; i++ {
		hub.Broadcast([]byte("x"))
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected no clients, got %d", hub.GetClientCount())
	}
}
