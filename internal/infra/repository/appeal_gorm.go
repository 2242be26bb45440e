package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

type AppealGormRepository struct {
	db *gorm.DB
}

func NewAppealGormRepository(db *gorm.DB) *AppealGormRepository {
	return &AppealGormRepository{db: db}
}

func (r *AppealGormRepository) CreateAppeal(
	ctx context.Context,
	a *models.Appeal,
) error {

	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Create(a).Error
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: booking already has an active appeal", httperr.ErrInvalidTransition)
	}
	return err
}

func (r *AppealGormRepository) withEvidence(q *gorm.DB) *gorm.DB {
	return q.Preload("Evidence", func(db *gorm.DB) *gorm.DB {
		return db.Order("uploaded_at ASC")
	})
}

func (r *AppealGormRepository) GetAppeal(
	ctx context.Context,
	id uuid.UUID,
) (*models.Appeal, error) {

	var a models.Appeal
	if err := r.withEvidence(r.db.WithContext(ctx)).
		First(&a, "id = ?", id).Error; err != nil {
		return nil, first(err, "appeal", id)
	}
	return &a, nil
}

func (r *AppealGormRepository) GetActiveForBooking(
	ctx context.Context,
	bookingID uuid.UUID,
) (*models.Appeal, error) {

	var a models.Appeal
	err := r.withEvidence(r.db.WithContext(ctx)).
		Where("booking_id = ? AND status IN ?", bookingID, appeal.ActiveStatuses()).
		First(&a).Error

	found, err := optional(err)
	if !found {
		return nil, err
	}
	return &a, nil
}

func (r *AppealGormRepository) UpdateAppeal(
	ctx context.Context,
	a *models.Appeal,
) error {

	next := *a
	next.Version = a.Version + 1

	res := r.db.WithContext(ctx).
		Model(&models.Appeal{}).
		Where("id = ? AND version = ?", a.ID, a.Version).
		Select("*").
		Omit("id", "created_at", clause.Associations).
		Updates(&next)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Appeal{}).Where("id = ?", a.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return notFound("appeal", a.ID)
		}
		return fmt.Errorf("%w: appeal %s", httperr.ErrConcurrentUpdate, a.ID)
	}

	*a = next
	return nil
}

func (r *AppealGormRepository) AddEvidence(
	ctx context.Context,
	ev *models.AppealEvidence,
) error {

	err := r.db.WithContext(ctx).Create(ev).Error
	if isForeignKeyViolation(err) {
		return notFound("appeal", ev.AppealID)
	}
	return err
}

// ListDue narrows candidates in SQL; appeal.IsDue has the final word.
func (r *AppealGormRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]models.Appeal, error) {

	candidates := []models.Appeal{}
	q := r.db.WithContext(ctx).
		Where(
			r.db.Where("status = ? AND tutor_response IS NULL AND deadline_for_tutor <= ?", appeal.StatusPendingTutor, now).
				Or("status = ? AND deadline_for_student <= ?", appeal.StatusPendingStudent, now).
				Or("status IN ? AND platform_overdue_at IS NULL AND deadline_for_platform <= ?",
					[]appeal.Status{appeal.StatusPendingPlatform, appeal.StatusPlatformProcessing}, now),
		).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&candidates).Error; err != nil {
		return nil, err
	}

	out := candidates[:0]
	for i := range candidates {
		if appeal.IsDue(&candidates[i], now) {
			out = append(out, candidates[i])
		}
	}
	return out, nil
}

// Compile-time check
var _ appeal.Repository = (*AppealGormRepository)(nil)
