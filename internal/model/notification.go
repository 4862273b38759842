package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification is a document in the MongoDB `notifications` collection.
// Notifications are produced from booking events and read by both the
// student and the custodian dashboards.
type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    uint64             `bson:"user_id" json:"userId"`
	Kind      string             `bson:"kind" json:"kind"`
	Title     string             `bson:"title" json:"title"`
	Body      string             `bson:"body" json:"body"`
	BookingID uint64             `bson:"booking_id,omitempty" json:"bookingId,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}

// Message is a document in the MongoDB `messages` collection.  Messages
// between the same two users share a ConversationKey.
type Message struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationKey string             `bson:"conversation_key" json:"conversationKey"`
	SenderID        uint64             `bson:"sender_id" json:"senderId"`
	RecipientID     uint64             `bson:"recipient_id" json:"recipientId"`
	Body            string             `bson:"body" json:"body"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
}

// Conversation summarizes the latest message exchanged with one peer.
type Conversation struct {
	PeerID      uint64    `bson:"peer_id" json:"peerId"`
	LastMessage string    `bson:"last_message" json:"lastMessage"`
	LastSender  uint64    `bson:"last_sender" json:"lastSenderId"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
	Count       int64     `bson:"count" json:"messageCount"`
}
