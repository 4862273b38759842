package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

type MessagingAPI interface {
	Send(ctx context.Context, senderID, recipientID uint64, body string) (model.Message, error)
	Conversations(ctx context.Context, userID uint64) ([]model.Conversation, error)
	Conversation(ctx context.Context, userID, peerID uint64) ([]model.Message, error)
	Feed(ctx context.Context, userID uint64) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID uint64, id string) error
}

// MessagingHandler serves student and custodian conversations and the
// notification feed.
type MessagingHandler struct {
	base
	Messaging MessagingAPI
}

func NewMessagingHandler(m MessagingAPI, log logrus.FieldLogger) *MessagingHandler {
	return &MessagingHandler{base: base{Log: log}, Messaging: m}
}

type messageReq struct {
	RecipientID uint64 `json:"recipientId" validate:"required"`
	Body        string `json:"body" validate:"required"`
}

// Send handles POST /api/messages.
func (h *MessagingHandler) Send(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req messageReq
	if err := bind(c, &req); err != nil {
		return h.fail(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.Messaging.Send(ctx, uid, req.RecipientID, req.Body)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// Conversations handles GET /api/conversations.
func (h *MessagingHandler) Conversations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	cs, err := h.Messaging.Conversations(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cs)
}

// Conversation handles GET /api/conversations/:peerId.
func (h *MessagingHandler) Conversation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	peerID, ok := parseID(c, "peerId")
	if !ok {
		return badRequest(c, "invalid peer id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ms, err := h.Messaging.Conversation(ctx, uid, peerID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ms)
}

// Notifications handles GET /api/notifications.
func (h *MessagingHandler) Notifications(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ns, err := h.Messaging.Feed(ctx, uid)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ns)
}

// MarkRead handles POST /api/notifications/:id/read.
func (h *MessagingHandler) MarkRead(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return badRequest(c, "invalid notification id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Messaging.MarkRead(ctx, uid, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
