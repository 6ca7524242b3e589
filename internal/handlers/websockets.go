package handlers

import (
	"encoding/json"
	"image"
	"net/http"
	"time"

	"contours/internal/dto"
	"contours/internal/logger"
	"contours/internal/services"
	"contours/internal/surface"

	"github.com/gorilla/websocket"
)

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	writeWait  = 10 * time.Second
)

// SurfaceWebsocketHandler connects a viewer to the clickable surface. The
// client sends ClickEvent messages and receives SurfaceMessage updates.
// Idle viewers are kept alive with pings.
func SurfaceWebsocketHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return surfaceWebsocketHandler(manager, logger, pongWait, pingPeriod)
}

func surfaceWebsocketHandler(manager *services.Manager, logger *logger.Logger, wait, period time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hub := manager.GetWebsocketService()
		if hub == nil {
			http.Error(w, "Live updates are disabled", http.StatusServiceUnavailable)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(wait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(wait))
			return nil
		})

		hub.Register(connection)
		defer hub.Unregister(connection)

		done := make(chan struct{})
		defer close(done)
		go keepAlive(connection, period, done)

		manager.PublishState()

		for {
			_, msg, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logger.Warning("Viewer connection closed: %v", err)
				}
				return
			}
			connection.SetReadDeadline(time.Now().Add(wait))

			event, err := parseClick(msg)
			if err != nil {
				logger.Warning("Ignoring surface message: %v", err)
				continue
			}
			manager.HandleClick(event)
		}
	}
}

// keepAlive pings the viewer every period until done is closed or a ping
// fails. WriteControl may run alongside the hub's writes.
func keepAlive(connection *websocket.Conn, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := connection.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func parseClick(msg []byte) (surface.Event, error) {
	var click dto.ClickEvent
	if err := json.Unmarshal(msg, &click); err != nil {
		return surface.Event{}, err
	}
	button, err := surface.ParseButton(click.Button)
	if err != nil {
		return surface.Event{}, err
	}
	return surface.Event{Button: button, Pos: image.Pt(click.X, click.Y)}, nil
}
