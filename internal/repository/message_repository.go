package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// MessageRepo stores student and custodian messages in MongoDB.
type MessageRepo struct {
	collection *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) *MessageRepo {
	return &MessageRepo{collection: db.Collection("messages")}
}

// ConversationKey is the same for both directions between two users.
func ConversationKey(a, b uint64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (r *MessageRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversation_key", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "sender_id", Value: 1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}}},
	})
	return err
}

// Insert stores m and sets its id and conversation key.
func (r *MessageRepo) Insert(ctx context.Context, m *model.Message) error {
	m.ID = primitive.NewObjectID()
	m.ConversationKey = ConversationKey(m.SenderID, m.RecipientID)
	_, err := r.collection.InsertOne(ctx, m)
	return err
}

// ListConversation returns the messages between two users, oldest first,
// keeping at most the latest limit messages.
func (r *MessageRepo) ListConversation(ctx context.Context, a, b uint64, limit int64) ([]model.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := r.collection.Find(ctx, bson.M{"conversation_key": ConversationKey(a, b)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []model.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Conversations summarizes every peer userID has exchanged messages with,
// most recently active first.
func (r *MessageRepo) Conversations(ctx context.Context, userID uint64) ([]model.Conversation, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"sender_id": userID},
			bson.M{"recipient_id": userID},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender_id", userID}}, "$recipient_id", "$sender_id",
			}}},
			{Key: "last_message", Value: bson.M{"$first": "$body"}},
			{Key: "last_sender", Value: bson.M{"$first": "$sender_id"}},
			{Key: "updated_at", Value: bson.M{"$first": "$created_at"}},
			{Key: "count", Value: bson.M{"$sum": 1}},
		}}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "peer_id", Value: "$_id"},
			{Key: "last_message", Value: 1},
			{Key: "last_sender", Value: 1},
			{Key: "updated_at", Value: 1},
			{Key: "count", Value: 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "updated_at", Value: -1}}}},
	}
	cur, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []model.Conversation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
