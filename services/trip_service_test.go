package services

import (
	"context"
	"rientro/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type tripFixture struct {
	service       *TripService
	trips         *fakeTripStore
	contacts      *fakeContactStore
	notifications *fakeNotificationStore
	push          *fakePushSender
	sms           *fakeSMSSender
	broadcaster   *fakeBroadcaster
	owner         models.User
	contact       models.Contact
}

func newTripFixture(t *testing.T) *tripFixture {
	t.Helper()

	owner := models.User{
		ID:          primitive.NewObjectID(),
		Email:       "giulia@example.com",
		DisplayName: "Giulia",
		FCMToken:    "owner-token",
	}
	contact := models.Contact{
		ID:       primitive.NewObjectID(),
		OwnerID:  owner.ID,
		Name:     "Anna",
		Phone:    "+15550001111",
		FCMToken: "token-anna",
	}

	trips := newFakeTripStore()
	contacts := newFakeContactStore(contact)
	users := newFakeUserStore(owner)
	notifications := &fakeNotificationStore{}
	push := &fakePushSender{}
	sms := &fakeSMSSender{}
	broadcaster := &fakeBroadcaster{}

	dispatcher := NewDispatchService(contacts, users, notifications, push, sms)
	service := NewTripService(trips, users, notifications, dispatcher, broadcaster)

	return &tripFixture{
		service:       service,
		trips:         trips,
		contacts:      contacts,
		notifications: notifications,
		push:          push,
		sms:           sms,
		broadcaster:   broadcaster,
		owner:         owner,
		contact:       contact,
	}
}

func (f *tripFixture) createTrip(t *testing.T, silent bool) *models.Trip {
	t.Helper()

	trip, err := f.service.CreateTrip(context.Background(), f.owner.ID.Hex(), models.CreateTripRequest{
		ContactIDs:      []string{f.contact.ID.Hex()},
		ExpectedEndTime: time.Now().Add(time.Hour),
		SilentMode:      silent,
	})
	require.NoError(t, err)
	return trip
}

func TestCreateTripNotifiesContacts(t *testing.T) {
	f := newTripFixture(t)

	trip := f.createTrip(t, false)

	assert.Equal(t, models.TripStatusActive, trip.Status)
	assert.Equal(t, models.EscalationNone, trip.EscalationLevel)
	require.NotNil(t, trip.LastPing, "a fresh trip starts with the clock already ticking")

	require.Len(t, f.push.sent, 1)
	assert.Equal(t, models.NotificationTypeTripStarted, f.push.sent[0].Message.Data["type"])
	assert.Contains(t, f.push.sent[0].Message.Body, "Giulia")
	require.Len(t, f.notifications.records, 1)
}

func TestCreateTripSilentModeSkipsStartAlert(t *testing.T) {
	f := newTripFixture(t)

	f.createTrip(t, true)

	assert.Empty(t, f.push.sent)
	assert.Empty(t, f.notifications.records)
}

func TestCreateTripRejectsPastDeadline(t *testing.T) {
	f := newTripFixture(t)

	_, err := f.service.CreateTrip(context.Background(), f.owner.ID.Hex(), models.CreateTripRequest{
		ContactIDs:      []string{f.contact.ID.Hex()},
		ExpectedEndTime: time.Now().Add(-time.Minute),
	})

	require.Error(t, err)
}

func TestGetTripRejectsOtherUsers(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, false)

	_, err := f.service.GetTrip(context.Background(), primitive.NewObjectID().Hex(), trip.ID.Hex())

	require.Error(t, err)
}

func TestCheckInResetsEscalation(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, false)

	// Simulate a sweep having already raised the trip.
	ok, err := f.trips.UpdateState(context.Background(), trip.ID.Hex(),
		models.TripStatusActive, models.EscalationNone,
		models.TripStatusLate, models.EscalationUrgent)
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := f.service.CheckIn(context.Background(), f.owner.ID.Hex(), trip.ID.Hex(), models.CheckInRequest{
		Location: &models.GeoPoint{Latitude: 45.0, Longitude: 9.0},
	})

	require.NoError(t, err)
	assert.Equal(t, models.TripStatusActive, updated.Status)
	assert.Equal(t, models.EscalationNone, updated.EscalationLevel)
	require.NotNil(t, updated.LastKnownLocation)

	stored, err := f.trips.GetByID(context.Background(), trip.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusActive, stored.Status)
	assert.Equal(t, models.EscalationNone, stored.EscalationLevel)
}

func TestCheckInRejectedOnEndedTrip(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, false)

	_, err := f.service.CompleteTrip(context.Background(), f.owner.ID.Hex(), trip.ID.Hex(), models.CompleteTripRequest{})
	require.NoError(t, err)

	_, err = f.service.CheckIn(context.Background(), f.owner.ID.Hex(), trip.ID.Hex(), models.CheckInRequest{})
	require.Error(t, err)
}

func TestCompleteTripNotifiesAndBroadcasts(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, false)
	f.push.sent = nil
	f.notifications.records = nil

	updated, err := f.service.CompleteTrip(context.Background(), f.owner.ID.Hex(), trip.ID.Hex(), models.CompleteTripRequest{})

	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, updated.Status)
	require.NotNil(t, updated.ActualEndTime)

	require.Len(t, f.push.sent, 1)
	assert.Equal(t, models.NotificationTypeTripCompleted, f.push.sent[0].Message.Data["type"])
	require.Len(t, f.broadcaster.calls, 1)
	assert.Equal(t, models.TripStatusCompleted, f.broadcaster.calls[0].Update.Status)
}

func TestCompleteTripSilentModeSkipsAlert(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, true)

	_, err := f.service.CompleteTrip(context.Background(), f.owner.ID.Hex(), trip.ID.Hex(), models.CompleteTripRequest{})

	require.NoError(t, err)
	assert.Empty(t, f.push.sent, "completion respects silent mode")
}

func TestCompleteTripTwiceConflicts(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, false)

	_, err := f.service.CompleteTrip(context.Background(), f.owner.ID.Hex(), trip.ID.Hex(), models.CompleteTripRequest{})
	require.NoError(t, err)

	_, err = f.service.CompleteTrip(context.Background(), f.owner.ID.Hex(), trip.ID.Hex(), models.CompleteTripRequest{})
	require.Error(t, err)
}

func TestCancelTripSendsNoAlert(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, false)
	f.push.sent = nil
	f.notifications.records = nil

	updated, err := f.service.CancelTrip(context.Background(), f.owner.ID.Hex(), trip.ID.Hex())

	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCancelled, updated.Status)
	assert.Empty(t, f.push.sent, "cancellation is not announced to contacts")
}

func TestTriggerSOSOverridesSilentMode(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, true)
	require.Empty(t, f.push.sent)

	updated, err := f.service.TriggerSOS(context.Background(), f.owner.ID.Hex(), trip.ID.Hex(), models.TriggerSOSRequest{
		Location: &models.GeoPoint{Latitude: 41.9, Longitude: 12.5},
	})

	require.NoError(t, err)
	assert.Equal(t, models.TripStatusEmergency, updated.Status)
	assert.Equal(t, models.EscalationSOS, updated.EscalationLevel)

	require.Len(t, f.push.sent, 1, "SOS must reach contacts even in silent mode")
	assert.Equal(t, models.NotificationTypeSOS, f.push.sent[0].Message.Data["type"])
	assert.Equal(t, models.UrgencyCritical, f.push.sent[0].Message.Urgency)
	assert.Contains(t, f.push.sent[0].Message.Data, "mapsUrl")

	require.Len(t, f.broadcaster.calls, 1)
	assert.Equal(t, models.EscalationSOS, f.broadcaster.calls[0].Update.EscalationLevel)
}

func TestTriggerSOSOnEndedTripConflicts(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, false)

	_, err := f.service.CancelTrip(context.Background(), f.owner.ID.Hex(), trip.ID.Hex())
	require.NoError(t, err)

	_, err = f.service.TriggerSOS(context.Background(), f.owner.ID.Hex(), trip.ID.Hex(), models.TriggerSOSRequest{})
	require.Error(t, err)
}

func TestHandleTripUpdatedEmergencyNotifiedOnce(t *testing.T) {
	f := newTripFixture(t)
	trip := f.createTrip(t, false)
	f.push.sent = nil

	before := trip.Snapshot()
	after := trip.Snapshot()
	after.Status = models.TripStatusEmergency
	after.EscalationLevel = models.EscalationEmergency

	require.NoError(t, f.service.HandleTripUpdated(context.Background(), &before, &after))
	require.Len(t, f.push.sent, 1)
	assert.Equal(t, models.NotificationTypeEmergency, f.push.sent[0].Message.Data["type"])

	// Already in emergency: a second pass over the same transition must not
	// alert again.
	staying := after.Snapshot()
	staying.EscalationLevel = models.EscalationSOS
	require.NoError(t, f.service.HandleTripUpdated(context.Background(), &after, &staying))
	require.Len(t, f.push.sent, 1)
}
