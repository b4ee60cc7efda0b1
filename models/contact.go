package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Contact is an emergency contact designated by a traveler. A contact
// without an FCM token has no push capability; alerts to it are recorded in
// the notification log only, with an SMS fallback for emergencies when a
// phone number is on file.
type Contact struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OwnerID        primitive.ObjectID `json:"ownerId" bson:"ownerId"`
	Name           string             `json:"name" bson:"name"`
	Phone          string             `json:"phone,omitempty" bson:"phone,omitempty"`
	FCMToken       string             `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	LastNotifiedAt *time.Time         `json:"lastNotifiedAt,omitempty" bson:"lastNotifiedAt,omitempty"`
	CreatedAt      time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// HasPush reports whether the contact can receive push notifications.
func (c *Contact) HasPush() bool {
	return c.FCMToken != ""
}
