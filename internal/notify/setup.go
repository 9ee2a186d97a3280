package notify

import (
	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/config"
)

// NewFromConfig builds the dispatcher used by every binary. Notifications are
// always logged; email and SMS delivery are added when configured.
func NewFromConfig(cfg config.Config, logger *zap.Logger) (*AsyncDispatcher, error) {
	renderer, err := NewRenderer(cfg.BusinessName)
	if err != nil {
		return nil, err
	}

	senders := []Sender{NewLogSender(logger)}
	if cfg.MailEnabled() {
		senders = append(senders, NewEmailSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			FromName: cfg.MailFromName,
		}, renderer))
	} else {
		logger.Info("SMTP not configured, email notifications disabled")
	}
	if cfg.SMSEnabled() {
		senders = append(senders, NewSMSSender(TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		}, renderer))
	} else {
		logger.Info("Twilio not configured, SMS notifications disabled")
	}

	return NewAsyncDispatcher(logger, cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifyTimeout, senders...), nil
}
