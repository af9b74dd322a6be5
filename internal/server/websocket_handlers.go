package server

import (
	"encoding/json"
	"log/slog"

	"folio/internal/models"
	"folio/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler upgrades GET /api/ws and streams engagement events to the
// caller. Clients only listen; anything they send besides a ping is ignored.
// @Summary Engagement event stream
// @Description WebSocket upgrade. Pass the bearer token as ?token= when headers are unavailable.
// @Tags realtime
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || uid == 0 || s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			slog.Warn("websocket registration rejected", "user_id", uid, "error", err)
			_ = conn.WriteJSON(models.ErrorResponse{Error: err.Error(), Code: models.CodeTransient})
			_ = conn.Close()
			return
		}
		client.IncomingHandler = answerPing

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.Status(fiber.StatusUpgradeRequired).JSON(models.ErrorResponse{Error: "WebSocket upgrade required"})
		}
		if s.hub == nil {
			return models.Respond(c, models.NewTransientError(nil))
		}
		return upgrade(c)
	}
}

func answerPing(c *notifications.Client, message []byte) {
	var msg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msg); err != nil || msg.Type != "ping" {
		return
	}
	c.TrySend([]byte(`{"type":"pong"}`))
}
