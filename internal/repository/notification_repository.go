package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bookmyhostel/hostel-api/internal/model"
)

// NotificationRepo stores the per-user notification feed in MongoDB.
type NotificationRepo struct {
	collection *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) *NotificationRepo {
	return &NotificationRepo{collection: db.Collection("notifications")}
}

// EnsureIndexes creates the feed index (user, newest first).
func (r *NotificationRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

// InsertMany stores ns, assigning ids and missing timestamps.
func (r *NotificationRepo) InsertMany(ctx context.Context, ns []model.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	docs := make([]any, len(ns))
	for i := range ns {
		if ns[i].ID.IsZero() {
			ns[i].ID = primitive.NewObjectID()
		}
		if ns[i].CreatedAt.IsZero() {
			ns[i].CreatedAt = time.Now().UTC()
		}
		docs[i] = ns[i]
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// ListByUser returns the newest notifications for userID.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int64) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []model.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkRead flags one of the user's notifications as read.  Another user's
// notification is reported as not found.
func (r *NotificationRepo) MarkRead(ctx context.Context, userID uint64, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotificationNotFound
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
