package models

import (
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types
const (
	NotificationTypeTripStarted   = "rientro_started"
	NotificationTypeEmergency     = "emergency"
	NotificationTypeSOS           = "sos"
	NotificationTypeTripCompleted = "rientro_completed"
	NotificationTypeCheckIn       = "check_in"
)

// Urgency tiers decided by the dispatcher. Platform-specific priority,
// channel and sound mapping is done by the push transport.
const (
	UrgencyHigh     = "high"
	UrgencyCritical = "critical"
)

// IsEmergencyType reports whether a notification type must bypass the
// trip's silent mode.
func IsEmergencyType(notificationType string) bool {
	return notificationType == NotificationTypeEmergency || notificationType == NotificationTypeSOS
}

// NotificationRecord is an append-only log entry, written once per recipient
// per dispatch regardless of delivery outcome.
type NotificationRecord struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ContactID primitive.ObjectID `json:"contactId" bson:"contactId"`
	TripID    primitive.ObjectID `json:"tripId" bson:"tripId"`
	Type      string             `json:"type" bson:"type"`
	Title     string             `json:"title" bson:"title"`
	Body      string             `json:"body" bson:"body"`
	SentAt    time.Time          `json:"sentAt" bson:"sentAt"`
	Delivered bool               `json:"delivered" bson:"delivered"`
}

// AlertPayload is the message composed by the lifecycle hooks and the sweep
// worker, handed to the dispatcher for delivery.
type AlertPayload struct {
	Title     string
	Body      string
	Type      string
	TripID    string
	OwnerID   string
	OwnerName string
	Location  *GeoPoint
}

// Data flattens the payload into the FCM data map sent to the client app.
func (p AlertPayload) Data() map[string]string {
	data := map[string]string{
		"type":      p.Type,
		"tripId":    p.TripID,
		"ownerId":   p.OwnerID,
		"ownerName": p.OwnerName,
	}
	if p.Location != nil {
		data["lat"] = strconv.FormatFloat(p.Location.Latitude, 'f', -1, 64)
		data["lng"] = strconv.FormatFloat(p.Location.Longitude, 'f', -1, 64)
	}
	return data
}

// PushMessage is the transport-level payload handed to the push sender.
type PushMessage struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Data    map[string]string `json:"data"`
	Urgency string            `json:"urgency"`
}

// DispatchOutcome reports what happened for a single recipient.
type DispatchOutcome struct {
	ContactID primitive.ObjectID `json:"contactId"`
	Delivered bool               `json:"delivered"`
	Error     string             `json:"error,omitempty"`
}
