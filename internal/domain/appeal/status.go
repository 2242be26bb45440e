package appeal

import (
	"fmt"

	"github.com/wemaster/booking-core/internal/httperr"
)

type Status string

const (
	StatusPendingTutor       Status = "pending_tutor"
	StatusPendingStudent     Status = "pending_student"
	StatusPendingPlatform    Status = "pending_platform"
	StatusPlatformProcessing Status = "platform_processing"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPendingTutor:       {StatusPendingStudent, StatusPendingPlatform, StatusCancelled},
	StatusPendingStudent:     {StatusCompleted, StatusPendingPlatform, StatusCancelled},
	StatusPendingPlatform:    {StatusPlatformProcessing, StatusCompleted, StatusCancelled},
	StatusPlatformProcessing: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ActiveStatuses are the ones counted by the one-active-appeal rule.
func ActiveStatuses() []Status {
	return []Status{
		StatusPendingTutor,
		StatusPendingStudent,
		StatusPendingPlatform,
		StatusPlatformProcessing,
	}
}

func guard(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: appeal %s -> %s", httperr.ErrInvalidTransition, from, to)
	}
	return nil
}

// ===============================
// Resolution vocabulary
// ===============================

const (
	ResolvedByStudent  = "student"
	ResolvedByPlatform = "platform"
)

const (
	EscalationTutorTimeout   = "tutor_timeout"
	EscalationStudentTimeout = "student_timeout"
	EscalationStudentRejects = "student_rejected"
)

type Decision string

const (
	DecisionRefund Decision = "refund"
	DecisionReject Decision = "reject"
)

func (d Decision) Valid() bool {
	return d == DecisionRefund || d == DecisionReject
}

type EvidenceType string

const (
	EvidenceImage    EvidenceType = "image"
	EvidenceVideo    EvidenceType = "video"
	EvidenceAudio    EvidenceType = "audio"
	EvidenceDocument EvidenceType = "document"
)

func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceImage, EvidenceVideo, EvidenceAudio, EvidenceDocument:
		return true
	}
	return false
}
