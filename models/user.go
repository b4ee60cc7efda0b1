package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the traveler account. Only the fields the monitoring engine needs
// are modeled here; profile management lives in the mobile backend.
type User struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email       string             `json:"email" bson:"email"`
	DisplayName string             `json:"displayName,omitempty" bson:"displayName,omitempty"`
	FCMToken    string             `json:"fcmToken,omitempty" bson:"fcmToken,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Name returns the best display name available for notification bodies.
func (u *User) Name() string {
	if u == nil {
		return "Someone"
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return "Someone"
}
