package receipt

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReceiptRepository interface {
	Store(ctx context.Context, bucket Bucket, receipt *DeliveryReceipt) error
	Recent(ctx context.Context, bucket Bucket, limit int64) ([]*DeliveryReceipt, error)
}

type receiptRepository struct {
	wa  *mongo.Collection
	sms *mongo.Collection
}

func NewReceiptRepository(wa, sms *mongo.Collection) ReceiptRepository {
	_ = EnsureReceiptIndexes(context.Background(), wa)
	_ = EnsureReceiptIndexes(context.Background(), sms)
	return &receiptRepository{
		wa:  wa,
		sms: sms,
	}
}

func (r *receiptRepository) collectionFor(bucket Bucket) *mongo.Collection {
	if bucket == BucketWhatsApp {
		return r.wa
	}
	return r.sms
}

func (r *receiptRepository) Store(ctx context.Context, bucket Bucket, receipt *DeliveryReceipt) error {

	_, err := r.collectionFor(bucket).InsertOne(ctx, receipt)

	if err != nil {
		return err
	}

	return nil

}

func (r *receiptRepository) Recent(ctx context.Context, bucket Bucket, limit int64) ([]*DeliveryReceipt, error) {

	var receipts []*DeliveryReceipt

	opts := options.Find().
		SetSort(bson.D{{Key: "received_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collectionFor(bucket).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	err = cursor.All(ctx, &receipts)
	if err != nil {
		return nil, err
	}

	return receipts, nil

}

func EnsureReceiptIndexes(ctx context.Context, coll *mongo.Collection) error {

	models := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "received_at", Value: -1},
			},
			Options: options.Index().
				SetName("by_received"),
		},
		{
			Keys: bson.D{
				{Key: "message_id", Value: 1},
				{Key: "received_at", Value: -1},
			},
			Options: options.Index().
				SetName("by_message_received"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}
