package appeal

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	appealdomain "github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/domain/pricing"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type TutorRespond struct {
	Deps
}

func NewTutorRespond(deps Deps) *TutorRespond {
	return &TutorRespond{Deps: deps}
}

// Execute records the tutor's answer. When the tutor deadline already
// lapsed the appeal is escalated and committed, and the call still fails.
func (uc *TutorRespond) Execute(
	ctx context.Context,
	appealID uuid.UUID,
	tutorID uuid.UUID,
	response string,
	proposedRefund *int64,
) (*models.Appeal, error) {

	var escalated bool

	m, err := uc.mutate(ctx, appealID, func(m *mutation) error {
		if err := requireTutor(m.appeal, tutorID); err != nil {
			return err
		}
		if appealdomain.ApplyEvaluation(m.appeal, m.now, uc.Policy.PlatformWindow()) {
			escalated = true
			return nil
		}

		refundCap := pricing.AppealRefundCap(m.booking.Price, false)
		return appealdomain.TutorRespond(m.appeal, response, proposedRefund, refundCap, m.now, uc.windows())
	})
	if err != nil {
		return nil, err
	}

	var after usecase.After
	defer after.Run()

	if escalated {
		uc.logEscalation(&after, m.appeal)
		return nil, errEscalated
	}

	uc.Log.Info("appeal answered by tutor",
		zap.String("appeal_id", appealID.String()),
		zap.Time("deadline_for_student", *m.appeal.DeadlineForStudent),
	)
	uc.EmitAfter(&after, &tutorID, audit.AppealResponded, audit.EntityAppeal, appealID, map[string]any{
		"proposed_refund":      proposedRefund,
		"deadline_for_student": m.appeal.DeadlineForStudent,
	})
	return m.appeal, nil
}

type StudentConfirm struct {
	Deps
}

func NewStudentConfirm(deps Deps) *StudentConfirm {
	return &StudentConfirm{Deps: deps}
}

// Execute takes the student's answer to the tutor's proposal. Accepting
// resolves the appeal with the proposed refund; rejecting escalates it.
func (uc *StudentConfirm) Execute(
	ctx context.Context,
	appealID uuid.UUID,
	studentID uuid.UUID,
	accepted bool,
) (*models.Appeal, error) {

	var escalated bool

	m, err := uc.mutate(ctx, appealID, func(m *mutation) error {
		if err := requireStudent(m.appeal, studentID); err != nil {
			return err
		}
		if appealdomain.ApplyEvaluation(m.appeal, m.now, uc.Policy.PlatformWindow()) {
			escalated = true
			return nil
		}

		refund, err := appealdomain.StudentConfirm(m.appeal, accepted, m.now, uc.windows())
		if err != nil {
			return err
		}
		if !accepted {
			return nil
		}
		return m.settleFunds(ctx, refund)
	})
	if err != nil {
		return nil, err
	}

	var after usecase.After
	defer after.Run()

	if escalated {
		uc.logEscalation(&after, m.appeal)
		return nil, errEscalated
	}

	if !accepted {
		uc.logEscalation(&after, m.appeal)
		return m.appeal, nil
	}

	uc.logResolution(&after, m, &studentID)
	return m.appeal, nil
}

func (d Deps) logEscalation(after *usecase.After, a *models.Appeal) {
	reason := ""
	if a.EscalationReason != nil {
		reason = *a.EscalationReason
	}

	d.Log.Info("appeal escalated",
		zap.String("appeal_id", a.ID.String()),
		zap.String("reason", reason),
	)
	d.EmitAfter(after, nil, audit.AppealEscalated, audit.EntityAppeal, a.ID, map[string]any{
		"reason":                reason,
		"deadline_for_platform": a.DeadlineForPlatform,
	})
}

func (d Deps) logResolution(after *usecase.After, m *mutation, by *uuid.UUID) {
	d.Log.Info("appeal resolved",
		zap.String("appeal_id", m.appeal.ID.String()),
		zap.String("booking_id", m.booking.ID.String()),
		zap.String("resolved_by", *m.appeal.ResolvedBy),
		zap.Int64("refund", m.refund),
	)
	d.EmitAfter(after, by, audit.AppealResolved, audit.EntityAppeal, m.appeal.ID, map[string]any{
		"booking_id":  m.booking.ID,
		"resolved_by": *m.appeal.ResolvedBy,
		"refund":      m.refund,
	})
	if m.needRefund {
		d.EmitAfter(after, nil, audit.RefundRequested, audit.EntityBooking, m.booking.ID, map[string]any{"amount": m.refund})
		d.scheduleRefund(after, m.booking.ID)
	}
}

// IsEscalated reports the error a late tutor or student answer returns.
func IsEscalated(err error) bool {
	return errors.Is(err, errEscalated)
}
