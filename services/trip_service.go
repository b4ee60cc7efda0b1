package services

import (
	"context"
	"errors"
	"fmt"
	"rientro/interfaces"
	"rientro/models"
	"rientro/utils"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TripService owns the trip lifecycle: traveler actions coming in over HTTP
// and the create/update hooks that turn state transitions into notifications.
// Every writer funnels status changes through HandleTripUpdated so that an
// EMERGENCY transition is notified exactly once, from a single place,
// whether it came from the sweep or from a manual SOS.
type TripService struct {
	tripRepo         interfaces.TripStore
	userRepo         interfaces.UserStore
	notificationRepo interfaces.NotificationStore
	dispatcher       *DispatchService
	broadcaster      interfaces.TripBroadcaster
	validator        *utils.ValidationService
}

func NewTripService(
	tripRepo interfaces.TripStore,
	userRepo interfaces.UserStore,
	notificationRepo interfaces.NotificationStore,
	dispatcher *DispatchService,
	broadcaster interfaces.TripBroadcaster,
) *TripService {
	return &TripService{
		tripRepo:         tripRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		dispatcher:       dispatcher,
		broadcaster:      broadcaster,
		validator:        utils.NewValidationService(),
	}
}

// =================== TRAVELER ACTIONS ===================

func (ts *TripService) CreateTrip(ctx context.Context, userID string, req models.CreateTripRequest) (*models.Trip, error) {
	if validationErrors := ts.validator.ValidateStruct(req); len(validationErrors) > 0 {
		return nil, utils.NewValidationError(validationErrors[0].Message)
	}
	if !req.ExpectedEndTime.After(time.Now()) {
		return nil, utils.NewValidationError("expectedEndTime must be in the future")
	}

	ownerObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, utils.NewValidationError("invalid user ID")
	}

	contactIDs := make([]primitive.ObjectID, 0, len(req.ContactIDs))
	for _, id := range req.ContactIDs {
		contactObjectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, utils.NewValidationError(fmt.Sprintf("invalid contact ID: %s", id))
		}
		contactIDs = append(contactIDs, contactObjectID)
	}

	now := time.Now()
	trip := &models.Trip{
		OwnerID:           ownerObjectID,
		ContactIDs:        contactIDs,
		Status:            models.TripStatusActive,
		EscalationLevel:   models.EscalationNone,
		ExpectedEndTime:   req.ExpectedEndTime,
		LastPing:          &now,
		SilentMode:        req.SilentMode,
		LastKnownLocation: req.Location,
	}

	if err := ts.tripRepo.Create(ctx, trip); err != nil {
		return nil, utils.NewServiceErrorWithCause("TRIP_CREATE_FAILED", "failed to create trip", err)
	}

	if err := ts.HandleTripCreated(ctx, trip); err != nil {
		logrus.Errorf("Trip %s created but start notification failed: %v", trip.ID.Hex(), err)
	}

	return trip, nil
}

func (ts *TripService) GetTrip(ctx context.Context, userID, tripID string) (*models.Trip, error) {
	trip, err := ts.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, utils.NewNotFoundError("Trip")
	}
	if trip.OwnerID.Hex() != userID {
		return nil, utils.NewForbiddenError("Trip belongs to another user")
	}

	return trip, nil
}

func (ts *TripService) GetUserTrips(ctx context.Context, userID string, page, pageSize int) ([]models.Trip, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	trips, total, err := ts.tripRepo.GetUserTrips(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, utils.NewServiceErrorWithCause("TRIP_QUERY_FAILED", "failed to list trips", err)
	}

	return trips, total, nil
}

func (ts *TripService) GetTripNotifications(ctx context.Context, userID, tripID string, page, pageSize int) ([]models.NotificationRecord, int64, error) {
	if _, err := ts.GetTrip(ctx, userID, tripID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	records, total, err := ts.notificationRepo.GetTripNotifications(ctx, tripID, page, pageSize)
	if err != nil {
		return nil, 0, utils.NewServiceErrorWithCause("NOTIFICATION_QUERY_FAILED", "failed to list notifications", err)
	}

	return records, total, nil
}

// CheckIn resets the overdue clock. The next sweep will simply find no
// further lateness; no notification is sent for a check-in.
func (ts *TripService) CheckIn(ctx context.Context, userID, tripID string, req models.CheckInRequest) (*models.Trip, error) {
	trip, err := ts.GetTrip(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	if !trip.IsOpen() {
		return nil, utils.NewConflictError("Trip is not open for check-in")
	}

	before := trip.Snapshot()
	now := time.Now()
	if err := ts.tripRepo.RecordCheckIn(ctx, tripID, now, req.Location); err != nil {
		return nil, utils.NewServiceErrorWithCause("CHECKIN_FAILED", "failed to record check-in", err)
	}

	trip.Status = models.TripStatusActive
	trip.EscalationLevel = models.EscalationNone
	trip.LastPing = &now
	if req.Location != nil {
		trip.LastKnownLocation = req.Location
	}

	if err := ts.HandleTripUpdated(ctx, &before, trip); err != nil {
		logrus.Errorf("Check-in hook for trip %s failed: %v", tripID, err)
	}

	return trip, nil
}

func (ts *TripService) CompleteTrip(ctx context.Context, userID, tripID string, req models.CompleteTripRequest) (*models.Trip, error) {
	return ts.endTrip(ctx, userID, tripID, models.TripStatusCompleted, req.Location)
}

func (ts *TripService) CancelTrip(ctx context.Context, userID, tripID string) (*models.Trip, error) {
	return ts.endTrip(ctx, userID, tripID, models.TripStatusCancelled, nil)
}

func (ts *TripService) endTrip(ctx context.Context, userID, tripID, status string, location *models.GeoPoint) (*models.Trip, error) {
	trip, err := ts.GetTrip(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	if trip.IsTerminal() {
		return nil, utils.NewConflictError("Trip already ended")
	}

	before := trip.Snapshot()
	now := time.Now()
	ok, err := ts.tripRepo.SetTerminal(ctx, tripID, status, now, location)
	if err != nil {
		return nil, utils.NewServiceErrorWithCause("TRIP_END_FAILED", "failed to end trip", err)
	}
	if !ok {
		return nil, utils.NewConflictError("Trip already ended")
	}

	trip.Status = status
	trip.ActualEndTime = &now
	if location != nil {
		trip.LastKnownLocation = location
	}

	if err := ts.HandleTripUpdated(ctx, &before, trip); err != nil {
		logrus.Errorf("End-trip hook for trip %s failed: %v", tripID, err)
	}

	return trip, nil
}

// TriggerSOS raises the trip to maximum urgency on the traveler's explicit
// action, bypassing the timeout-based evaluator entirely.
func (ts *TripService) TriggerSOS(ctx context.Context, userID, tripID string, req models.TriggerSOSRequest) (*models.Trip, error) {
	trip, err := ts.GetTrip(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}
	if trip.IsTerminal() {
		return nil, utils.NewConflictError("Trip already ended")
	}

	before := trip.Snapshot()
	ok, err := ts.tripRepo.SetSOS(ctx, tripID, req.Location)
	if err != nil {
		return nil, utils.NewServiceErrorWithCause("SOS_FAILED", "failed to trigger SOS", err)
	}
	if !ok {
		return nil, utils.NewConflictError("Trip already ended")
	}

	trip.Status = models.TripStatusEmergency
	trip.EscalationLevel = models.EscalationSOS
	if req.Location != nil {
		trip.LastKnownLocation = req.Location
	}

	if err := ts.HandleTripUpdated(ctx, &before, trip); err != nil {
		logrus.Errorf("SOS hook for trip %s failed: %v", tripID, err)
	}

	return trip, nil
}

// =================== LIFECYCLE HOOKS ===================

// HandleTripCreated notifies the listed contacts that a monitored return
// started. Suppressed in silent mode; the first sweep is handed off to the
// shared periodic sweep worker rather than a per-trip timer.
func (ts *TripService) HandleTripCreated(ctx context.Context, trip *models.Trip) error {
	if len(trip.ContactIDs) == 0 {
		return nil
	}

	ownerName := ts.ownerName(ctx, trip.OwnerID)
	payload := models.AlertPayload{
		Title:     "Return started",
		Body:      fmt.Sprintf("%s started a monitored return and added you as an emergency contact.", ownerName),
		Type:      models.NotificationTypeTripStarted,
		TripID:    trip.ID.Hex(),
		OwnerID:   trip.OwnerID.Hex(),
		OwnerName: ownerName,
	}

	_, err := ts.dispatcher.NotifyContacts(ctx, trip.ContactIDs, payload, trip.SilentMode)
	return err
}

// HandleTripUpdated compares the before and after snapshots and reacts to
// the transitions the engine cares about. All writers route through here.
func (ts *TripService) HandleTripUpdated(ctx context.Context, before, after *models.Trip) error {
	var errs []error

	if before.Status != after.Status || before.EscalationLevel != after.EscalationLevel {
		ts.broadcastUpdate(after)
	}

	// Transition into EMERGENCY: alert contacts, silent mode never applies.
	if before.Status != models.TripStatusEmergency && after.Status == models.TripStatusEmergency {
		ownerName := ts.ownerName(ctx, after.OwnerID)
		isSOS := after.EscalationLevel == models.EscalationSOS

		payload := models.AlertPayload{
			Title:     "⚠️ EMERGENCY",
			Body:      fmt.Sprintf("%s may need help. No response for a while.", ownerName),
			Type:      models.NotificationTypeEmergency,
			TripID:    after.ID.Hex(),
			OwnerID:   after.OwnerID.Hex(),
			OwnerName: ownerName,
			Location:  after.LastKnownLocation,
		}
		if isSOS {
			payload.Title = "🆘 SOS ACTIVATED"
			payload.Body = fmt.Sprintf("%s manually triggered the emergency signal.", ownerName)
			payload.Type = models.NotificationTypeSOS
		}

		if _, err := ts.dispatcher.NotifyContacts(ctx, after.ContactIDs, payload, false); err != nil {
			errs = append(errs, err)
		}
	}

	// Transition into COMPLETED: let contacts know, silent mode respected.
	if before.Status != models.TripStatusCompleted && after.Status == models.TripStatusCompleted {
		ownerName := ts.ownerName(ctx, after.OwnerID)

		payload := models.AlertPayload{
			Title:     "Return completed ✓",
			Body:      fmt.Sprintf("%s arrived safely.", ownerName),
			Type:      models.NotificationTypeTripCompleted,
			TripID:    after.ID.Hex(),
			OwnerID:   after.OwnerID.Hex(),
			OwnerName: ownerName,
		}

		if _, err := ts.dispatcher.NotifyContacts(ctx, after.ContactIDs, payload, after.SilentMode); err != nil {
			errs = append(errs, err)
		}
	}

	// A newer ping is a check-in; the next sweep simply finds no lateness.
	if after.LastPing != nil && (before.LastPing == nil || after.LastPing.After(*before.LastPing)) {
		logrus.Debugf("Check-in received for trip %s", after.ID.Hex())
	}

	return errors.Join(errs...)
}

func (ts *TripService) broadcastUpdate(trip *models.Trip) {
	if ts.broadcaster == nil {
		return
	}

	ts.broadcaster.BroadcastTripUpdate(trip.ID.Hex(), models.WSTripUpdate{
		TripID:          trip.ID.Hex(),
		Status:          trip.Status,
		EscalationLevel: trip.EscalationLevel,
		Location:        trip.LastKnownLocation,
		UpdatedAt:       time.Now(),
	})
}

func (ts *TripService) ownerName(ctx context.Context, ownerID primitive.ObjectID) string {
	user, err := ts.userRepo.GetByID(ctx, ownerID.Hex())
	if err != nil {
		logrus.Warnf("Failed to load owner %s for notification: %v", ownerID.Hex(), err)
		return "Someone"
	}
	return user.Name()
}
