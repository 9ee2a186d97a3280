package maintenance

import (
	"context"

	"go.uber.org/zap"
)

// Reminders sends reminders for tomorrow's reservations.
type Reminders interface {
	SendReminders(ctx context.Context) (int, error)
}

func (c *WeekChecker) Job() Job {
	return func(ctx context.Context) error {
		_, err := c.Check(ctx)
		return err
	}
}

func ReminderJob(r Reminders, logger *zap.Logger) Job {
	return func(ctx context.Context) error {
		sent, err := r.SendReminders(ctx)
		if err != nil {
			return err
		}
		logger.Info("reminders queued", zap.Int("count", sent))
		return nil
	}
}
