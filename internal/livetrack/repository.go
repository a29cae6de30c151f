package livetrack

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PointRepository is the append-only durable log of position fixes.
type PointRepository interface {
	Append(ctx context.Context, p *TrackPoint) error
	List(ctx context.Context, sessionID string) ([]TrackPoint, error)
}

// SessionRepository is the durable mirror of the in-memory index. The
// mirror exists so the index can be rebuilt after a restart; it is
// never read on the hot path.
type SessionRepository interface {
	Upsert(ctx context.Context, rec *SessionRecord) error
	Find(ctx context.Context, id string) (*SessionRecord, error)
}

type pointRepository struct {
	collection *mongo.Collection
}

func NewPointRepository(collection *mongo.Collection) PointRepository {
	_ = EnsurePointIndexes(context.Background(), collection)
	return &pointRepository{collection: collection}
}

func (r *pointRepository) Append(ctx context.Context, p *TrackPoint) error {
	_, err := r.collection.InsertOne(ctx, p)
	return err
}

// List returns the full track ascending by timestamp; _id breaks ties
// in insertion order.
func (r *pointRepository) List(ctx context.Context, sessionID string) ([]TrackPoint, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "ts", Value: 1},
		{Key: "_id", Value: 1},
	})
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}

	var points []TrackPoint
	if err := cursor.All(ctx, &points); err != nil {
		return nil, err
	}
	return points, nil
}

func EnsurePointIndexes(ctx context.Context, coll *mongo.Collection) error {
	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "ts", Value: 1},
			},
			Options: options.Index().SetName("by_session_time"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

type sessionRepository struct {
	collection *mongo.Collection
}

func NewSessionRepository(collection *mongo.Collection) SessionRepository {
	return &sessionRepository{collection: collection}
}

func (r *sessionRepository) Upsert(ctx context.Context, rec *SessionRecord) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": rec.ID}, rec, opts)
	return err
}

func (r *sessionRepository) Find(ctx context.Context, id string) (*SessionRecord, error) {
	var rec SessionRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
