package booking

import (
	"time"

	"github.com/wemaster/booking-core/internal/clock"
)

// Policy holds the lesson windows. It is built once from config and passed
// by value.
type Policy struct {
	AppealHours         int
	FeedbackDays        int
	StudentConfirmHours int
	PlatformHours       int
}

func DefaultPolicy() Policy {
	return Policy{
		AppealHours:         24,
		FeedbackDays:        7,
		StudentConfirmHours: 48,
		PlatformHours:       72,
	}
}

func (p Policy) AppealWindow() time.Duration {
	return time.Duration(p.AppealHours) * time.Hour
}

func (p Policy) StudentConfirmWindow() time.Duration {
	return time.Duration(p.StudentConfirmHours) * time.Hour
}

func (p Policy) PlatformWindow() time.Duration {
	return time.Duration(p.PlatformHours) * time.Hour
}

// AppealDeadline is the last instant an appeal may be opened.
func (p Policy) AppealDeadline(completedAt time.Time) time.Time {
	return completedAt.Add(p.AppealWindow())
}

// FeedbackDeadline counts business days.
func (p Policy) FeedbackDeadline(completedAt time.Time) time.Time {
	return clock.AddBusinessDays(completedAt, p.FeedbackDays)
}
