package alert

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AlertRepository interface {
	SaveAudit(ctx context.Context, audit *AlertAudit) error
	SaveMetric(ctx context.Context, event *MetricEvent) error
	RecentAudits(ctx context.Context, limit int64) ([]*AlertAudit, error)
}

type alertRepository struct {
	audits  *mongo.Collection
	metrics *mongo.Collection
}

func NewAlertRepository(audits, metrics *mongo.Collection) AlertRepository {
	_ = EnsureAuditIndexes(context.Background(), audits)
	return &alertRepository{
		audits:  audits,
		metrics: metrics,
	}
}

func (r *alertRepository) SaveAudit(ctx context.Context, audit *AlertAudit) error {

	_, err := r.audits.InsertOne(ctx, audit)

	if err != nil {
		return err
	}

	return nil

}

func (r *alertRepository) SaveMetric(ctx context.Context, event *MetricEvent) error {

	_, err := r.metrics.InsertOne(ctx, event)

	if err != nil {
		return err
	}

	return nil

}

func (r *alertRepository) RecentAudits(ctx context.Context, limit int64) ([]*AlertAudit, error) {

	var audits []*AlertAudit

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.audits.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	err = cursor.All(ctx, &audits)
	if err != nil {
		return nil, err
	}

	return audits, nil

}

func EnsureAuditIndexes(ctx context.Context, coll *mongo.Collection) error {

	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_email", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().
				SetName("by_user_created"),
		},
		{
			Keys: bson.D{
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().
				SetName("by_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}
