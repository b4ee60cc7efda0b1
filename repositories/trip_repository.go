// repositories/trip_repository.go
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

type TripRepository struct {
	collection *mongo.Collection
}

func NewTripRepository(db *mongo.Database) *TripRepository {
	return &TripRepository{
		collection: db.Collection("trips"),
	}
}

// ========================
// Core Trip CRUD
// ========================

func (tr *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = time.Now()

	result, err := tr.collection.InsertOne(ctx, trip)
	if err != nil {
		return fmt.Errorf("failed to create trip: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		trip.ID = oid
	}
	return nil
}

func (tr *TripRepository) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid trip ID: %w", err)
	}

	var trip models.Trip
	err = tr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&trip)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("trip not found")
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}

	return &trip, nil
}

func (tr *TripRepository) GetUserTrips(ctx context.Context, ownerID string, page, pageSize int) ([]models.Trip, int64, error) {
	ownerObjectID, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid owner ID: %w", err)
	}

	filter := bson.M{"ownerId": ownerObjectID}

	total, err := tr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	skip := (page - 1) * pageSize
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize))

	cursor, err := tr.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find trips: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []models.Trip
	if err = cursor.All(ctx, &trips); err != nil {
		return nil, 0, fmt.Errorf("failed to decode trips: %w", err)
	}

	return trips, total, nil
}

// ========================
// Sweep queries
// ========================

func (tr *TripRepository) ListByStatus(ctx context.Context, statuses []string) ([]models.Trip, error) {
	filter := bson.M{"status": bson.M{"$in": statuses}}

	cursor, err := tr.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find trips by status: %w", err)
	}
	defer cursor.Close(ctx)

	var trips []models.Trip
	if err = cursor.All(ctx, &trips); err != nil {
		return nil, fmt.Errorf("failed to decode trips: %w", err)
	}

	return trips, nil
}

// UpdateState persists a new (status, escalationLevel) pair. The filter
// matches the previously read values so that two concurrent sweeps can never
// double-escalate the same trip; the loser sees matched == 0.
func (tr *TripRepository) UpdateState(ctx context.Context, id string, prevStatus string, prevLevel int, newStatus string, newLevel int) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid trip ID: %w", err)
	}

	filter := bson.M{
		"_id":             objectID,
		"status":          prevStatus,
		"escalationLevel": prevLevel,
	}
	update := bson.M{"$set": bson.M{
		"status":          newStatus,
		"escalationLevel": newLevel,
		"updatedAt":       time.Now(),
	}}

	result, err := tr.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update trip state: %w", err)
	}

	return result.MatchedCount == 1, nil
}

// ========================
// Traveler actions
// ========================

func (tr *TripRepository) RecordCheckIn(ctx context.Context, id string, at time.Time, location *models.GeoPoint) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid trip ID: %w", err)
	}

	set := bson.M{
		"lastPing":  at,
		"updatedAt": time.Now(),
		// A check-in resets the overdue clock and drops a late trip back to
		// active; emergency trips stay put and require manual resolution.
		"escalationLevel": models.EscalationNone,
		"status":          models.TripStatusActive,
	}
	if location != nil {
		set["lastKnownLocation"] = location
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": []string{models.TripStatusActive, models.TripStatusLate}},
	}

	result, err := tr.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to record check-in: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("trip not open for check-in")
	}

	return nil
}

// SetTerminal moves an open or emergency trip into a terminal status. The
// conditional filter keeps terminal trips immutable.
func (tr *TripRepository) SetTerminal(ctx context.Context, id string, status string, endedAt time.Time, location *models.GeoPoint) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid trip ID: %w", err)
	}

	set := bson.M{
		"status":        status,
		"actualEndTime": endedAt,
		"updatedAt":     time.Now(),
	}
	if location != nil {
		set["lastKnownLocation"] = location
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$nin": []string{models.TripStatusCompleted, models.TripStatusCancelled}},
	}

	result, err := tr.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to set terminal status: %w", err)
	}

	return result.MatchedCount == 1, nil
}

// SetSOS raises the trip to a manual SOS: maximum level, emergency status.
func (tr *TripRepository) SetSOS(ctx context.Context, id string, location *models.GeoPoint) (bool, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, fmt.Errorf("invalid trip ID: %w", err)
	}

	set := bson.M{
		"status":          models.TripStatusEmergency,
		"escalationLevel": models.EscalationSOS,
		"updatedAt":       time.Now(),
	}
	if location != nil {
		set["lastKnownLocation"] = location
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$nin": []string{models.TripStatusCompleted, models.TripStatusCancelled}},
	}

	result, err := tr.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("failed to set SOS: %w", err)
	}

	return result.MatchedCount == 1, nil
}

// ========================
// Retention
// ========================

func (tr *TripRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"status":        bson.M{"$in": []string{models.TripStatusCompleted, models.TripStatusCancelled}},
		"actualEndTime": bson.M{"$lt": cutoff},
	}

	result, err := tr.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old trips: %w", err)
	}

	return result.DeletedCount, nil
}
