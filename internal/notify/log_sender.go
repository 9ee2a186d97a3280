package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender records messages instead of delivering them. It is the only
// channel when neither SMTP nor Twilio is configured.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification (no delivery channel configured)",
		zap.String("kind", string(msg.Kind)),
		zap.String("to", msg.To),
		zap.String("service", msg.ServiceName),
		zap.Time("date", msg.Date),
		zap.String("start", msg.StartTime),
	)
	return nil
}
