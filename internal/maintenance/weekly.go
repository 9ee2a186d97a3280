package maintenance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/appointment-booking/internal/booking"
	"github.com/hackgods/appointment-booking/internal/clock"
)

type SlotCounter interface {
	CountSlotsBetween(ctx context.Context, from, to time.Time) (int, error)
}

// WeekReport is the outcome of one weekly slot check.
type WeekReport struct {
	From  time.Time
	To    time.Time
	Slots int
}

func (r WeekReport) Missing() bool {
	return r.Slots == 0
}

// WeekChecker verifies that next week already has slots. It never creates
// any: slot creation stays with the admin.
type WeekChecker struct {
	slots  SlotCounter
	clock  clock.Clock
	logger *zap.Logger
}

func NewWeekChecker(slots SlotCounter, clk clock.Clock, logger *zap.Logger) *WeekChecker {
	return &WeekChecker{slots: slots, clock: clk, logger: logger.Named("weekly-check")}
}

// NextWeek returns Monday and Sunday of the ISO week after the one holding now.
func NextWeek(now time.Time) (time.Time, time.Time) {
	today := booking.DateOf(now)
	sinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, 7-sinceMonday)
	return monday, monday.AddDate(0, 0, 6)
}

func (c *WeekChecker) Check(ctx context.Context) (WeekReport, error) {
	from, to := NextWeek(c.clock.Now())

	count, err := c.slots.CountSlotsBetween(ctx, from, to)
	if err != nil {
		return WeekReport{}, fmt.Errorf("count next week slots: %w", err)
	}

	report := WeekReport{From: from, To: to, Slots: count}
	fields := []zap.Field{
		zap.String("from", booking.FormatDate(from)),
		zap.String("to", booking.FormatDate(to)),
		zap.Int("slots", count),
	}
	if report.Missing() {
		c.logger.Warn("next week has no slots yet, admin needs to create them", fields...)
	} else {
		c.logger.Info("next week already has slots", fields...)
	}
	return report, nil
}
