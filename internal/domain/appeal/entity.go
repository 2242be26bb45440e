package appeal

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

// Windows are the appeal deadlines, derived from booking.Policy.
type Windows struct {
	Tutor    time.Duration
	Student  time.Duration
	Platform time.Duration
}

func New(
	b *models.Booking,
	reason string,
	content string,
	now time.Time,
	w Windows,
) (*models.Appeal, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", httperr.ErrInvalidInput)
	}

	return &models.Appeal{
		ID:               uuid.New(),
		BookingID:        b.ID,
		StudentID:        b.StudentID,
		TutorID:          b.TutorID,
		Status:           string(StatusPendingTutor),
		Reason:           reason,
		Content:          content,
		DeadlineForTutor: now.Add(w.Tutor),
	}, nil
}

// ===============================
// Domain Actions
// ===============================

// TutorRespond requires the caller to have run ApplyEvaluation first, so a
// lapsed deadline has already moved the appeal out of pending_tutor.
func TutorRespond(
	a *models.Appeal,
	response string,
	proposedRefund *int64,
	refundCap int64,
	now time.Time,
	w Windows,
) error {
	if err := guard(Status(a.Status), StatusPendingStudent); err != nil {
		return err
	}
	if !now.Before(a.DeadlineForTutor) {
		return fmt.Errorf("%w: tutor deadline passed", httperr.ErrInvalidTransition)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("%w: response is required", httperr.ErrInvalidInput)
	}
	if proposedRefund != nil && (*proposedRefund < 0 || *proposedRefund > refundCap) {
		return fmt.Errorf("%w: proposed refund must be within 0..%d", httperr.ErrInvalidAmount, refundCap)
	}

	deadline := now.Add(w.Student)
	a.TutorResponse = &response
	a.ProposedRefund = proposedRefund
	a.DeadlineForStudent = &deadline
	a.Status = string(StatusPendingStudent)
	return nil
}

// StudentConfirm returns the refund to pay out when the student accepts.
func StudentConfirm(a *models.Appeal, accepted bool, now time.Time, w Windows) (int64, error) {
	if Status(a.Status) != StatusPendingStudent {
		return 0, fmt.Errorf("%w: appeal is %s", httperr.ErrInvalidTransition, a.Status)
	}
	if a.DeadlineForStudent != nil && !now.Before(*a.DeadlineForStudent) {
		return 0, fmt.Errorf("%w: student deadline passed", httperr.ErrInvalidTransition)
	}

	a.StudentAccepted = &accepted
	if !accepted {
		escalate(a, StatusPendingPlatform, EscalationStudentRejects, now, w.Platform)
		return 0, nil
	}

	var refund int64
	if a.ProposedRefund != nil {
		refund = *a.ProposedRefund
	}
	resolve(a, ResolvedByStudent, refund, now)
	return refund, nil
}

func StartProcessing(a *models.Appeal) error {
	if err := guard(Status(a.Status), StatusPlatformProcessing); err != nil {
		return err
	}
	a.Status = string(StatusPlatformProcessing)
	return nil
}

// PlatformResolve is final. refundCap already reflects overrideFee.
func PlatformResolve(
	a *models.Appeal,
	decision Decision,
	refund int64,
	overrideFee bool,
	response string,
	refundCap int64,
	now time.Time,
) (int64, error) {
	s := Status(a.Status)
	if s != StatusPendingPlatform && s != StatusPlatformProcessing {
		return 0, fmt.Errorf("%w: appeal is %s", httperr.ErrInvalidTransition, a.Status)
	}
	if !decision.Valid() {
		return 0, fmt.Errorf("%w: decision %q", httperr.ErrInvalidInput, decision)
	}
	if decision == DecisionReject {
		refund = 0
	}
	if refund < 0 || refund > refundCap {
		return 0, fmt.Errorf("%w: refund must be within 0..%d", httperr.ErrInvalidAmount, refundCap)
	}
	if decision == DecisionRefund && refund == 0 {
		return 0, fmt.Errorf("%w: refund decision needs an amount", httperr.ErrInvalidAmount)
	}

	if response != "" {
		a.PlatformResponse = &response
	}
	a.FeeOverride = overrideFee
	resolve(a, ResolvedByPlatform, refund, now)
	return refund, nil
}

func Withdraw(a *models.Appeal, now time.Time) error {
	if err := guard(Status(a.Status), StatusCancelled); err != nil {
		return err
	}
	a.Status = string(StatusCancelled)
	a.ResolvedAt = &now
	return nil
}

func resolve(a *models.Appeal, by string, refund int64, now time.Time) {
	a.Status = string(StatusCompleted)
	a.RefundAmount = &refund
	a.ResolvedBy = &by
	a.ResolvedAt = &now
}

func NewEvidence(
	a *models.Appeal,
	evType EvidenceType,
	contentType string,
	objectKey string,
	url string,
	uploadedBy uuid.UUID,
	now time.Time,
) (*models.AppealEvidence, error) {
	if IsTerminal(Status(a.Status)) {
		return nil, fmt.Errorf("%w: appeal is %s", httperr.ErrInvalidTransition, a.Status)
	}
	if !evType.Valid() {
		return nil, fmt.Errorf("%w: evidence type %q", httperr.ErrInvalidInput, evType)
	}

	return &models.AppealEvidence{
		ID:          uuid.New(),
		AppealID:    a.ID,
		Type:        string(evType),
		ContentType: contentType,
		ObjectKey:   objectKey,
		URL:         url,
		UploadedBy:  uploadedBy,
		UploadedAt:  now,
	}, nil
}
