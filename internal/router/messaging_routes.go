package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookmyhostel/hostel-api/internal/handler"
	"github.com/bookmyhostel/hostel-api/internal/middleware"
)

// RegisterMessaging registers conversations and the notification feed for
// both roles.
func RegisterMessaging(e *echo.Echo, h *handler.MessagingHandler, jwtSecret string) {
	jwt := middleware.JWTAuth(jwtSecret)

	e.POST("/api/messages", h.Send, jwt)
	e.GET("/api/conversations", h.Conversations, jwt)
	e.GET("/api/conversations/:peerId", h.Conversation, jwt)
	e.GET("/api/notifications", h.Notifications, jwt)
	e.POST("/api/notifications/:id/read", h.MarkRead, jwt)
}
