package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"valet-backend/middlewares"
)

// RequestStream pushes request-change events to the connected client. Screens
// that used to poll every second subscribe here instead; GET /api/requests
// remains the polling fallback.
func RequestStream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ch := Hub.Subscribe()
		defer Hub.Unsubscribe(ch)

		// Read pump: only needed to notice the peer going away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	})
}

// UpgradeRequired gates the websocket route to genuine, authenticated upgrade
// requests. Browsers cannot set headers on a websocket handshake, so the JWT
// travels as a query parameter instead of the usual Bearer header.
func UpgradeRequired(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	claims, err := middlewares.ParseToken(c.Query("token"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or missing token")
	}
	c.Locals("userID", claims.Subject)
	c.Locals("userName", claims.Name)
	c.Locals("role", claims.Role)
	return c.Next()
}
