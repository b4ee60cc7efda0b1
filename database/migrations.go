package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the monitoring engine queries depend on.
// Index creation is idempotent; existing indexes are left untouched.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := createTripIndexes(ctx, db); err != nil {
		return err
	}
	if err := createUserIndexes(ctx, db); err != nil {
		return err
	}
	if err := createContactIndexes(ctx, db); err != nil {
		return err
	}
	if err := createNotificationIndexes(ctx, db); err != nil {
		return err
	}

	logrus.Info("Database indexes ensured")
	return nil
}

func createTripIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		// Sweep query: all open trips
		{Keys: bson.D{{Key: "status", Value: 1}}},
		// Owner listing, newest first
		{Keys: bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		// Retention sweep over terminal trips
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "actualEndTime", Value: 1}}},
	}

	_, err := db.Collection("trips").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create trip indexes: %w", err)
	}
	return nil
}

func createUserIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := db.Collection("users").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func createContactIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "ownerId", Value: 1}}},
	}

	_, err := db.Collection("contacts").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create contact indexes: %w", err)
	}
	return nil
}

func createNotificationIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := []mongo.IndexModel{
		// Trip history, newest first
		{Keys: bson.D{{Key: "tripId", Value: 1}, {Key: "sentAt", Value: -1}}},
		// Retention sweep
		{Keys: bson.D{{Key: "sentAt", Value: 1}}},
	}

	_, err := db.Collection("notifications").Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}
	return nil
}
