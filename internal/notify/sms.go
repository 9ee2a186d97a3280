package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSSender texts the client when a phone number is on file. Messages without
// a phone are skipped silently.
type SMSSender struct {
	api      messageCreator
	from     string
	renderer *Renderer
}

func NewSMSSender(cfg TwilioConfig, renderer *Renderer) *SMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &SMSSender{api: client.Api, from: cfg.FromNumber, renderer: renderer}
}

func (s *SMSSender) Name() string { return "sms" }

func (s *SMSSender) Send(_ context.Context, msg Message) error {
	phone := strings.TrimSpace(msg.Phone)
	if phone == "" {
		return nil
	}
	// Twilio needs E.164.
	if !strings.HasPrefix(phone, "+") {
		return fmt.Errorf("%w: phone %q is not E.164", ErrNoRecipient, phone)
	}

	body, err := s.renderer.Text(msg)
	if err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(phone)
	params.SetFrom(s.from)
	params.SetBody(body)

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	return nil
}
