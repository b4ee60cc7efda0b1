// repositories/notification_repository.go
package repositories

import (
	"context"
	"fmt"
	"rientro/models"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// Append inserts a delivery log entry. The log is append-only; records are
// never updated, only aged out by the cleanup worker.
func (nr *NotificationRepository) Append(ctx context.Context, record *models.NotificationRecord) error {
	if record.SentAt.IsZero() {
		record.SentAt = time.Now()
	}

	_, err := nr.collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to append notification record: %w", err)
	}

	return nil
}

func (nr *NotificationRepository) GetTripNotifications(ctx context.Context, tripID string, page, pageSize int) ([]models.NotificationRecord, int64, error) {
	tripObjectID, err := primitive.ObjectIDFromHex(tripID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid trip ID: %w", err)
	}

	filter := bson.M{"tripId": tripObjectID}

	total, err := nr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	skip := (page - 1) * pageSize
	findOptions := options.Find().
		SetSort(bson.D{{Key: "sentAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize))

	cursor, err := nr.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.NotificationRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return records, total, nil
}

func (nr *NotificationRepository) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := nr.collection.DeleteMany(ctx, bson.M{"sentAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}

	return result.DeletedCount, nil
}
