package services

import (
	"context"
	"fmt"
	"rientro/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// PushService delivers push notifications through FCM. The urgency tier
// decided by the dispatcher is mapped here to the platform-specific channel,
// priority and sound.
type PushService struct {
	fcmClient *messaging.Client
}

func NewPushService(firebaseCredentials string) (*PushService, error) {
	opt := option.WithCredentialsFile(firebaseCredentials)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %v", err)
	}

	fcmClient, err := app.Messaging(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FCM client: %v", err)
	}

	return &PushService{
		fcmClient: fcmClient,
	}, nil
}

func (ps *PushService) Send(ctx context.Context, token string, msg models.PushMessage) (string, error) {
	critical := msg.Urgency == models.UrgencyCritical

	androidPriority := "high"
	sound := "default"
	if critical {
		androidPriority = "max"
		sound = "critical"
	}

	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: channelFor(msg.Data["type"]),
				Priority:  androidNotificationPriority(androidPriority),
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:            sound,
					Badge:            intPtr(1),
					ContentAvailable: critical,
				},
			},
		},
	}

	if critical {
		message.APNS.Headers = map[string]string{"apns-priority": "10"}
	}

	response, err := ps.fcmClient.Send(ctx, message)
	if err != nil {
		return "", fmt.Errorf("failed to send push notification: %w", err)
	}

	return response, nil
}

func channelFor(notificationType string) string {
	switch notificationType {
	case models.NotificationTypeCheckIn:
		return "rientro_checkin"
	case models.NotificationTypeEmergency, models.NotificationTypeSOS:
		return "rientro_emergency"
	default:
		return "rientro_default"
	}
}

func androidNotificationPriority(priority string) messaging.AndroidNotificationPriority {
	if priority == "max" {
		return messaging.PriorityMax
	}
	return messaging.PriorityHigh
}

func intPtr(v int) *int {
	return &v
}

// NoopPushSender logs instead of sending. Used in development when Firebase
// credentials are not configured.
type NoopPushSender struct{}

func NewNoopPushSender() *NoopPushSender {
	return &NoopPushSender{}
}

func (ps *NoopPushSender) Send(ctx context.Context, token string, msg models.PushMessage) (string, error) {
	logrus.WithFields(logrus.Fields{
		"token":   token,
		"title":   msg.Title,
		"urgency": msg.Urgency,
	}).Info("Push notification (noop)")
	return "noop", nil
}
