package appeal

import (
	"time"

	"github.com/wemaster/booking-core/internal/models"
)

// Evaluate is the pure escalation rule: given an appeal and the current
// time it returns the status the appeal should be in and whether that
// differs from the stored one. Only deadline lapses are considered.
func Evaluate(a *models.Appeal, now time.Time) (Status, bool) {
	switch s := Status(a.Status); s {
	case StatusPendingTutor:
		if a.TutorResponse == nil && !now.Before(a.DeadlineForTutor) {
			return StatusPendingPlatform, true
		}
	case StatusPendingStudent:
		if a.DeadlineForStudent != nil && !now.Before(*a.DeadlineForStudent) {
			return StatusPendingPlatform, true
		}
	}
	return Status(a.Status), false
}

// ApplyEvaluation writes the result of Evaluate into the appeal and
// reports whether anything changed.
func ApplyEvaluation(a *models.Appeal, now time.Time, platformWindow time.Duration) bool {
	next, changed := Evaluate(a, now)
	if !changed {
		return false
	}

	reason := EscalationTutorTimeout
	if Status(a.Status) == StatusPendingStudent {
		reason = EscalationStudentTimeout
	}
	escalate(a, next, reason, now, platformWindow)
	return true
}

func escalate(a *models.Appeal, to Status, reason string, now time.Time, platformWindow time.Duration) {
	deadline := now.Add(platformWindow)
	a.Status = string(to)
	a.EscalatedAt = &now
	a.EscalationReason = &reason
	a.DeadlineForPlatform = &deadline
}

// PlatformOverdue reports an escalated appeal the platform has not closed
// in time and that has not been flagged yet.
func PlatformOverdue(a *models.Appeal, now time.Time) bool {
	s := Status(a.Status)
	if s != StatusPendingPlatform && s != StatusPlatformProcessing {
		return false
	}
	return a.PlatformOverdueAt == nil &&
		a.DeadlineForPlatform != nil &&
		!now.Before(*a.DeadlineForPlatform)
}

func MarkPlatformOverdue(a *models.Appeal, now time.Time) {
	a.PlatformOverdueAt = &now
}

// IsDue reports whether the sweep has work to do on this appeal.
func IsDue(a *models.Appeal, now time.Time) bool {
	if _, changed := Evaluate(a, now); changed {
		return true
	}
	return PlatformOverdue(a, now)
}
