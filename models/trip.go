package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Trip statuses
const (
	TripStatusActive    = "active"
	TripStatusLate      = "late"
	TripStatusEmergency = "emergency"
	TripStatusCompleted = "completed"
	TripStatusCancelled = "cancelled"
)

// Escalation levels, ordered by urgency
const (
	EscalationNone      = 0
	EscalationSoft      = 1 // first soft reminder to the traveler
	EscalationUrgent    = 2 // second, more insistent reminder
	EscalationEmergency = 3 // emergency contacts get alerted
	EscalationSOS       = 4 // manual SOS triggered by the traveler
)

// Trip is a tracked return with a deadline and a periodic liveness signal.
// Status and escalation level are only ever raised by the sweep worker or by
// an explicit traveler action (check-in, complete, cancel, SOS).
type Trip struct {
	ID                primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	OwnerID           primitive.ObjectID   `json:"ownerId" bson:"ownerId"`
	ContactIDs        []primitive.ObjectID `json:"contactIds" bson:"contactIds"`
	Status            string               `json:"status" bson:"status"`
	EscalationLevel   int                  `json:"escalationLevel" bson:"escalationLevel"`
	ExpectedEndTime   time.Time            `json:"expectedEndTime" bson:"expectedEndTime"`
	ActualEndTime     *time.Time           `json:"actualEndTime,omitempty" bson:"actualEndTime,omitempty"`
	LastPing          *time.Time           `json:"lastPing,omitempty" bson:"lastPing,omitempty"`
	SilentMode        bool                 `json:"silentMode" bson:"silentMode"`
	LastKnownLocation *GeoPoint            `json:"lastKnownLocation,omitempty" bson:"lastKnownLocation,omitempty"`
	CreatedAt         time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt" bson:"updatedAt"`
}

type GeoPoint struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

// IsTerminal reports whether the trip reached a final status. Terminal trips
// are excluded from sweeps and are never mutated by the engine again.
func (t *Trip) IsTerminal() bool {
	return t.Status == TripStatusCompleted || t.Status == TripStatusCancelled
}

// IsOpen reports whether the trip is still eligible for escalation sweeps.
func (t *Trip) IsOpen() bool {
	return t.Status == TripStatusActive || t.Status == TripStatusLate
}

// Snapshot returns a copy used as the "before" image for update hooks.
func (t *Trip) Snapshot() Trip {
	cp := *t
	cp.ContactIDs = append([]primitive.ObjectID(nil), t.ContactIDs...)
	if t.LastPing != nil {
		ping := *t.LastPing
		cp.LastPing = &ping
	}
	if t.LastKnownLocation != nil {
		loc := *t.LastKnownLocation
		cp.LastKnownLocation = &loc
	}
	return cp
}

// Request DTOs

type CreateTripRequest struct {
	ContactIDs      []string  `json:"contactIds" validate:"max=10,dive,required"`
	ExpectedEndTime time.Time `json:"expectedEndTime" validate:"required"`
	SilentMode      bool      `json:"silentMode"`
	Location        *GeoPoint `json:"location,omitempty"`
}

type CheckInRequest struct {
	Location *GeoPoint `json:"location,omitempty"`
}

type TriggerSOSRequest struct {
	Location *GeoPoint `json:"location,omitempty"`
	Message  string    `json:"message,omitempty" validate:"max=500"`
}

type CompleteTripRequest struct {
	Location *GeoPoint `json:"location,omitempty"`
}
