package interfaces

import (
	"context"
	"rientro/models"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store and transport contracts the engine depends on. Repositories and the
// FCM/Twilio wrappers implement these; tests substitute fakes.

type TripStore interface {
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id string) (*models.Trip, error)
	GetUserTrips(ctx context.Context, ownerID string, page, pageSize int) ([]models.Trip, int64, error)
	ListByStatus(ctx context.Context, statuses []string) ([]models.Trip, error)

	// UpdateState persists a new (status, escalationLevel) pair with a
	// conditional write against the previously read values. It returns false
	// without error when another writer got there first.
	UpdateState(ctx context.Context, id string, prevStatus string, prevLevel int, newStatus string, newLevel int) (bool, error)

	RecordCheckIn(ctx context.Context, id string, at time.Time, location *models.GeoPoint) error
	SetTerminal(ctx context.Context, id string, status string, endedAt time.Time, location *models.GeoPoint) (bool, error)
	SetSOS(ctx context.Context, id string, location *models.GeoPoint) (bool, error)
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type ContactStore interface {
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Contact, error)
	TouchLastNotified(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

type NotificationStore interface {
	Append(ctx context.Context, record *models.NotificationRecord) error
	GetTripNotifications(ctx context.Context, tripID string, page, pageSize int) ([]models.NotificationRecord, int64, error)
	DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PushSender delivers a single push message to one device token.
type PushSender interface {
	Send(ctx context.Context, token string, message models.PushMessage) (string, error)
}

// SMSSender delivers the emergency fallback text to contacts without the app.
type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

// TripBroadcaster pushes live status changes to connected websocket clients.
type TripBroadcaster interface {
	BroadcastTripUpdate(tripID string, update models.WSTripUpdate)
}
