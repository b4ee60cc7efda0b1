package services

import (
	"context"
	"fmt"
	"rientro/interfaces"
	"rientro/models"
	"rientro/utils"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DispatchService composes and delivers alerts to a set of recipients. It
// owns the silent-mode override rule and the per-recipient delivery
// bookkeeping; it performs no retries.
type DispatchService struct {
	contactRepo      interfaces.ContactStore
	userRepo         interfaces.UserStore
	notificationRepo interfaces.NotificationStore
	push             interfaces.PushSender
	sms              interfaces.SMSSender
}

func NewDispatchService(
	contactRepo interfaces.ContactStore,
	userRepo interfaces.UserStore,
	notificationRepo interfaces.NotificationStore,
	push interfaces.PushSender,
	sms interfaces.SMSSender,
) *DispatchService {
	return &DispatchService{
		contactRepo:      contactRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		push:             push,
		sms:              sms,
	}
}

// NotifyContacts delivers the payload to every listed contact.
//
// Emergency and SOS alerts are always attempted; every other type is a
// whole-call no-op when the trip is in silent mode. Each contact gets a
// NotificationRecord and a lastNotifiedAt stamp whether or not it has a push
// token and whether or not the send succeeds, and one contact's transport
// failure never blocks the rest.
func (ds *DispatchService) NotifyContacts(ctx context.Context, contactIDs []primitive.ObjectID, payload models.AlertPayload, silentMode bool) ([]models.DispatchOutcome, error) {
	critical := models.IsEmergencyType(payload.Type)

	if silentMode && !critical {
		return nil, nil
	}
	if len(contactIDs) == 0 {
		return nil, nil
	}

	tripObjectID, err := primitive.ObjectIDFromHex(payload.TripID)
	if err != nil {
		return nil, utils.NewValidationError("invalid trip ID in alert payload")
	}

	contacts, err := ds.contactRepo.GetByIDs(ctx, contactIDs)
	if err != nil {
		return nil, utils.NewServiceErrorWithCause("DISPATCH_FAILED", "failed to load contacts", err)
	}

	data := payload.Data()
	if payload.Location != nil {
		data["mapsUrl"] = utils.MapsURL(payload.Location.Latitude, payload.Location.Longitude)
	}

	urgency := models.UrgencyHigh
	if critical {
		urgency = models.UrgencyCritical
	}

	outcomes := make([]models.DispatchOutcome, 0, len(contacts))
	for _, contact := range contacts {
		outcome := models.DispatchOutcome{ContactID: contact.ID}

		if contact.HasPush() {
			_, err := ds.push.Send(ctx, contact.FCMToken, models.PushMessage{
				Title:   payload.Title,
				Body:    payload.Body,
				Data:    data,
				Urgency: urgency,
			})
			if err != nil {
				// Isolated failure: record it and move on to the next contact.
				outcome.Error = err.Error()
				logrus.Errorf("Push to contact %s failed: %v", contact.ID.Hex(), err)
			} else {
				outcome.Delivered = true
			}
		} else if critical && contact.Phone != "" && ds.sms != nil {
			// No app installed: emergency alerts fall back to SMS. The record
			// still counts as undelivered push, matching the log semantics.
			if err := ds.sms.Send(ctx, contact.Phone, fmt.Sprintf("%s - %s", payload.Title, payload.Body)); err != nil {
				logrus.Errorf("SMS fallback to contact %s failed: %v", contact.ID.Hex(), err)
			}
		}

		now := time.Now()
		record := &models.NotificationRecord{
			ContactID: contact.ID,
			TripID:    tripObjectID,
			Type:      payload.Type,
			Title:     payload.Title,
			Body:      payload.Body,
			SentAt:    now,
			Delivered: outcome.Delivered,
		}
		if err := ds.notificationRepo.Append(ctx, record); err != nil {
			logrus.Errorf("Failed to log notification for contact %s: %v", contact.ID.Hex(), err)
		}
		if err := ds.contactRepo.TouchLastNotified(ctx, contact.ID, now); err != nil {
			logrus.Errorf("Failed to stamp lastNotifiedAt for contact %s: %v", contact.ID.Hex(), err)
		}

		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// SendCheckInReminder nudges the traveler when the sweep raises a soft or
// urgent level. The reminder is optional by definition: silent mode
// suppresses it entirely, with no emergency override.
func (ds *DispatchService) SendCheckInReminder(ctx context.Context, ownerID, tripID string, silentMode bool) error {
	if silentMode {
		return nil
	}

	user, err := ds.userRepo.GetByID(ctx, ownerID)
	if err != nil {
		return utils.NewServiceErrorWithCause("DISPATCH_FAILED", "failed to load traveler", err)
	}
	if user.FCMToken == "" {
		return nil
	}

	_, err = ds.push.Send(ctx, user.FCMToken, models.PushMessage{
		Title: "Everything ok?",
		Body:  "We haven't heard from you in a while. Confirm you're ok.",
		Data: map[string]string{
			"type":   models.NotificationTypeCheckIn,
			"tripId": tripID,
		},
		Urgency: models.UrgencyHigh,
	})
	if err != nil {
		return utils.NewServiceErrorWithCause("DISPATCH_FAILED", "failed to send check-in reminder", err)
	}

	return nil
}
