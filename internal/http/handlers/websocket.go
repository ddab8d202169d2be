package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"commhub/internal/auth"
	"commhub/internal/realtime"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// WebSocketMessage is the frame sent to connected clients
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketHandler bridges the realtime hub onto WebSocket connections
type WebSocketHandler struct {
	hub         *realtime.Hub
	authService *auth.Service
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *realtime.Hub, authService *auth.Service) *WebSocketHandler {
	return &WebSocketHandler{
		hub:         hub,
		authService: authService,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin in development.
		// In production, check against allowed origins.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HandleWebSocket godoc
// @Summary Subscribe to the change feed
// @Description Upgrades to WebSocket and streams row change events for the caller's organization
// @Tags realtime
// @Param token query string true "JWT access token"
// @Param tables query string false "Comma-separated table filter"
// @Router /ws [get]
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	// Browsers cannot set headers on WebSocket dials, so the token rides
	// in a query parameter and is validated here.
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization token")
	}

	claims, err := h.authService.ValidateToken(token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
	}

	sub := realtime.Subscription{UserID: claims.UserID}
	if claims.OrganizationID != nil {
		sub.OrganizationID = *claims.OrganizationID
	} else if header := c.QueryParam("organization_id"); header != "" {
		// Super admins pick the organization they are observing
		oid, err := uuid.Parse(header)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid organization ID")
		}
		sub.OrganizationID = oid
	}

	if tables := c.QueryParam("tables"); tables != "" {
		sub.Tables = strings.Split(tables, ",")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	client := h.hub.Subscribe(sub)

	go h.writePump(conn, client)
	go h.readPump(conn, client)

	return nil
}

// readPump drains client frames and tears the subscription down on close
func (h *WebSocketHandler) readPump(conn *websocket.Conn, client *realtime.Client) {
	defer func() {
		h.hub.Unsubscribe(client)
		conn.Close()
	}()

	// 30s read deadline against 20s pings
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Msg("WebSocket closed")
			}
			return
		}

		var frame WebSocketMessage
		if err := json.Unmarshal(message, &frame); err == nil && frame.Type == "ping" {
			// Application-level ping used by clients behind proxies that
			// strip control frames
			continue
		}
	}
}

// writePump streams hub events out and keeps the connection alive
func (h *WebSocketHandler) writePump(conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(20 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	welcome := WebSocketMessage{Type: "connection", Data: map[string]string{"status": "connected"}, Timestamp: time.Now()}
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(welcome); err != nil {
		return
	}

	for {
		select {
		case event, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			frame := WebSocketMessage{Type: "change", Data: event, Timestamp: time.Now()}
			if err := conn.WriteJSON(frame); err != nil {
				log.Debug().Err(err).Msg("WebSocket write error")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
