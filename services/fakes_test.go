package services

import (
	"context"
	"errors"
	"fmt"
	"rientro/models"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes for the interfaces package contracts.

type fakeContactStore struct {
	mu       sync.Mutex
	contacts map[primitive.ObjectID]models.Contact
	touched  []primitive.ObjectID
}

func newFakeContactStore(contacts ...models.Contact) *fakeContactStore {
	store := &fakeContactStore{contacts: make(map[primitive.ObjectID]models.Contact)}
	for _, c := range contacts {
		store.contacts[c.ID] = c
	}
	return store
}

func (f *fakeContactStore) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	contact, ok := f.contacts[objectID]
	if !ok {
		return nil, errors.New("contact not found")
	}
	return &contact, nil
}

func (f *fakeContactStore) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Contact
	for _, id := range ids {
		if contact, ok := f.contacts[id]; ok {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (f *fakeContactStore) TouchLastNotified(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, id)
	if contact, ok := f.contacts[id]; ok {
		contact.LastNotifiedAt = &at
		f.contacts[id] = contact
	}
	return nil
}

type fakeUserStore struct {
	users map[string]models.User
}

func newFakeUserStore(users ...models.User) *fakeUserStore {
	store := &fakeUserStore{users: make(map[string]models.User)}
	for _, u := range users {
		store.users[u.ID.Hex()] = u
	}
	return store
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return &user, nil
}

type fakeNotificationStore struct {
	mu      sync.Mutex
	records []models.NotificationRecord
}

func (f *fakeNotificationStore) Append(ctx context.Context, record *models.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *record)
	return nil
}

func (f *fakeNotificationStore) GetTripNotifications(ctx context.Context, tripID string, page, pageSize int) ([]models.NotificationRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.NotificationRecord
	for _, r := range f.records {
		if r.TripID.Hex() == tripID {
			out = append(out, r)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationStore) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.NotificationRecord
	var deleted int64
	for _, r := range f.records {
		if r.SentAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.records = kept
	return deleted, nil
}

type sentPush struct {
	Token   string
	Message models.PushMessage
}

type fakePushSender struct {
	mu         sync.Mutex
	sent       []sentPush
	failTokens map[string]bool
}

func (f *fakePushSender) Send(ctx context.Context, token string, message models.PushMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTokens[token] {
		return "", errors.New("transport unavailable")
	}
	f.sent = append(f.sent, sentPush{Token: token, Message: message})
	return fmt.Sprintf("msg-%d", len(f.sent)), nil
}

type fakeSMSSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSMSSender) Send(ctx context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

// fakeTripStore keeps trips in memory and honors the conditional-write
// semantics of the real repository.
type fakeTripStore struct {
	mu    sync.Mutex
	trips map[string]*models.Trip
}

func newFakeTripStore(trips ...*models.Trip) *fakeTripStore {
	store := &fakeTripStore{trips: make(map[string]*models.Trip)}
	for _, trip := range trips {
		store.trips[trip.ID.Hex()] = trip
	}
	return store
}

func (f *fakeTripStore) Create(ctx context.Context, trip *models.Trip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if trip.ID.IsZero() {
		trip.ID = primitive.NewObjectID()
	}
	trip.CreatedAt = time.Now()
	trip.UpdatedAt = time.Now()
	cp := trip.Snapshot()
	f.trips[trip.ID.Hex()] = &cp
	return nil
}

func (f *fakeTripStore) GetByID(ctx context.Context, id string) (*models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return nil, errors.New("trip not found")
	}
	cp := trip.Snapshot()
	return &cp, nil
}

func (f *fakeTripStore) GetUserTrips(ctx context.Context, ownerID string, page, pageSize int) ([]models.Trip, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Trip
	for _, trip := range f.trips {
		if trip.OwnerID.Hex() == ownerID {
			out = append(out, trip.Snapshot())
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeTripStore) ListByStatus(ctx context.Context, statuses []string) ([]models.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Trip
	for _, trip := range f.trips {
		for _, status := range statuses {
			if trip.Status == status {
				out = append(out, trip.Snapshot())
				break
			}
		}
	}
	return out, nil
}

func (f *fakeTripStore) UpdateState(ctx context.Context, id string, prevStatus string, prevLevel int, newStatus string, newLevel int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return false, errors.New("trip not found")
	}
	if trip.Status != prevStatus || trip.EscalationLevel != prevLevel {
		return false, nil
	}
	trip.Status = newStatus
	trip.EscalationLevel = newLevel
	trip.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeTripStore) RecordCheckIn(ctx context.Context, id string, at time.Time, location *models.GeoPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return errors.New("trip not found")
	}
	if !trip.IsOpen() {
		return errors.New("trip not open for check-in")
	}
	trip.LastPing = &at
	trip.Status = models.TripStatusActive
	trip.EscalationLevel = models.EscalationNone
	if location != nil {
		trip.LastKnownLocation = location
	}
	return nil
}

func (f *fakeTripStore) SetTerminal(ctx context.Context, id string, status string, endedAt time.Time, location *models.GeoPoint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return false, errors.New("trip not found")
	}
	if trip.IsTerminal() {
		return false, nil
	}
	trip.Status = status
	trip.ActualEndTime = &endedAt
	if location != nil {
		trip.LastKnownLocation = location
	}
	return true, nil
}

func (f *fakeTripStore) SetSOS(ctx context.Context, id string, location *models.GeoPoint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trip, ok := f.trips[id]
	if !ok {
		return false, errors.New("trip not found")
	}
	if trip.IsTerminal() {
		return false, nil
	}
	trip.Status = models.TripStatusEmergency
	trip.EscalationLevel = models.EscalationSOS
	if location != nil {
		trip.LastKnownLocation = location
	}
	return true, nil
}

func (f *fakeTripStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, trip := range f.trips {
		if trip.IsTerminal() && trip.ActualEndTime != nil && trip.ActualEndTime.Before(cutoff) {
			delete(f.trips, id)
			deleted++
		}
	}
	return deleted, nil
}

type broadcastCall struct {
	TripID string
	Update models.WSTripUpdate
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (f *fakeBroadcaster) BroadcastTripUpdate(tripID string, update models.WSTripUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{TripID: tripID, Update: update})
}
