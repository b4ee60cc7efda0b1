// repositories/contact_repository.go
package repositories

import (
	"context"
	"fmt"
	"rientro/models"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ContactRepository struct {
	collection *mongo.Collection
}

func NewContactRepository(db *mongo.Database) *ContactRepository {
	return &ContactRepository{
		collection: db.Collection("contacts"),
	}
}

func (cr *ContactRepository) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid contact ID: %w", err)
	}

	var contact models.Contact
	err = cr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&contact)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("contact not found")
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	return &contact, nil
}

// GetByIDs returns the contacts that exist among the given ids. Missing ids
// are silently dropped; a trip may reference contacts deleted since.
func (cr *ContactRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := cr.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find contacts: %w", err)
	}
	defer cursor.Close(ctx)

	var contacts []models.Contact
	if err = cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}

	return contacts, nil
}

// TouchLastNotified stamps the contact after every dispatch attempt,
// delivered or not.
func (cr *ContactRepository) TouchLastNotified(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := cr.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"lastNotifiedAt": at, "updatedAt": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to update lastNotifiedAt: %w", err)
	}

	return nil
}
