package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSService is the emergency fallback channel for contacts that have a
// phone number on file but no app installed.
type SMSService struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewSMSService(accountSID, authToken, fromNumber string) *SMSService {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &SMSService{
		client:     client,
		fromNumber: fromNumber,
	}
}

func (ss *SMSService) Send(ctx context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(ss.fromNumber)
	params.SetBody(body)

	_, err := ss.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	return nil
}

// NoopSMSSender logs instead of sending. Used when Twilio is not configured.
type NoopSMSSender struct{}

func NewNoopSMSSender() *NoopSMSSender {
	return &NoopSMSSender{}
}

func (ss *NoopSMSSender) Send(ctx context.Context, to, body string) error {
	logrus.WithField("to", to).Info("SMS (noop)")
	return nil
}
