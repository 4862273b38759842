package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bookmyhostel/hostel-api/internal/model"
	"github.com/bookmyhostel/hostel-api/internal/repository"
)

// MessagingService stores direct messages between students and
// custodians and serves the notification feed.
type MessagingService struct {
	Users         UserReader
	Messages      MessageStore
	Notifications NotificationStore
	Log           *logrus.Logger

	now func() time.Time
}

func NewMessagingService(users UserReader, messages MessageStore, notifications NotificationStore, log *logrus.Logger) *MessagingService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &MessagingService{Users: users, Messages: messages, Notifications: notifications, Log: log, now: time.Now}
}

const (
	maxMessage         = 4000
	conversationLimit  = 200
	notificationsLimit = 50
)

// Send stores a message from senderID to recipientID and adds a
// notification to the recipient's feed.
func (s *MessagingService) Send(ctx context.Context, senderID, recipientID uint64, body string) (model.Message, error) {
	body = strings.TrimSpace(body)
	switch {
	case recipientID == 0:
		return model.Message{}, badRequest("recipientId is required")
	case recipientID == senderID:
		return model.Message{}, badRequest("Cannot send a message to yourself")
	case body == "":
		return model.Message{}, badRequest("Message body is required")
	case len(body) > maxMessage:
		return model.Message{}, badRequest("Message is too long")
	}
	if _, err := s.Users.GetByID(ctx, recipientID); err != nil {
		return model.Message{}, mapNotFound(err, "Recipient not found")
	}

	now := s.now().UTC()
	m := model.Message{
		ConversationKey: repository.ConversationKey(senderID, recipientID),
		SenderID:        senderID,
		RecipientID:     recipientID,
		Body:            body,
		CreatedAt:       now,
	}
	if err := s.Messages.Insert(ctx, &m); err != nil {
		return model.Message{}, err
	}

	preview := body
	if r := []rune(preview); len(r) > 80 {
		preview = string(r[:80]) + "..."
	}
	n := model.Notification{UserID: recipientID, Kind: "message", Title: "New message", Body: preview, CreatedAt: now}
	if err := s.Notifications.InsertMany(ctx, []model.Notification{n}); err != nil {
		s.Log.WithError(err).WithField("recipient_id", recipientID).Warn("message notification not stored")
	}
	return m, nil
}

// Conversations lists the user's conversations, most recent first.
func (s *MessagingService) Conversations(ctx context.Context, userID uint64) ([]model.Conversation, error) {
	return s.Messages.Conversations(ctx, userID)
}

// Conversation returns the messages exchanged with peerID, oldest first.
func (s *MessagingService) Conversation(ctx context.Context, userID, peerID uint64) ([]model.Message, error) {
	if peerID == 0 || peerID == userID {
		return nil, badRequest("Invalid peer")
	}
	return s.Messages.ListConversation(ctx, userID, peerID, conversationLimit)
}

// Feed returns the user's notifications, newest first.
func (s *MessagingService) Feed(ctx context.Context, userID uint64) ([]model.Notification, error) {
	return s.Notifications.ListByUser(ctx, userID, notificationsLimit)
}

// MarkRead marks one of the user's notifications as read.
func (s *MessagingService) MarkRead(ctx context.Context, userID uint64, id string) error {
	if err := s.Notifications.MarkRead(ctx, userID, id); err != nil {
		return mapNotFound(err, "Notification not found")
	}
	return nil
}
