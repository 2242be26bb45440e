package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

type appealRepository struct {
	db *Store
}

var _ appeal.Repository = (*appealRepository)(nil)

func (r *appealRepository) CreateAppeal(_ context.Context, a *models.Appeal) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	for _, other := range r.db.t.appeals {
		if other.BookingID == a.BookingID && !appeal.IsTerminal(appeal.Status(other.Status)) {
			return fmt.Errorf("%w: booking already has an active appeal", httperr.ErrInvalidTransition)
		}
	}

	stored := *a
	stored.Evidence = nil
	r.db.t.appeals[a.ID] = stored
	return nil
}

func (r *appealRepository) withEvidence(a models.Appeal) *models.Appeal {
	a.Evidence = []models.AppealEvidence{}
	for _, ev := range r.db.t.evidence {
		if ev.AppealID == a.ID {
			a.Evidence = append(a.Evidence, ev)
		}
	}
	sort.Slice(a.Evidence, func(i, j int) bool { return a.Evidence[i].UploadedAt.Before(a.Evidence[j].UploadedAt) })
	return &a
}

func (r *appealRepository) GetAppeal(_ context.Context, id uuid.UUID) (*models.Appeal, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	a, ok := r.db.t.appeals[id]
	if !ok {
		return nil, notFound("appeal", id)
	}
	return r.withEvidence(a), nil
}

func (r *appealRepository) GetActiveForBooking(_ context.Context, bookingID uuid.UUID) (*models.Appeal, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, a := range r.db.t.appeals {
		if a.BookingID == bookingID && !appeal.IsTerminal(appeal.Status(a.Status)) {
			return r.withEvidence(a), nil
		}
	}
	return nil, nil
}

func (r *appealRepository) UpdateAppeal(_ context.Context, a *models.Appeal) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	stored, ok := r.db.t.appeals[a.ID]
	if !ok {
		return notFound("appeal", a.ID)
	}
	if stored.Version != a.Version {
		return fmt.Errorf("%w: appeal %s", httperr.ErrConcurrentUpdate, a.ID)
	}

	a.Version++
	next := *a
	next.Evidence = nil
	r.db.t.appeals[a.ID] = next
	return nil
}

func (r *appealRepository) AddEvidence(_ context.Context, ev *models.AppealEvidence) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	if _, ok := r.db.t.appeals[ev.AppealID]; !ok {
		return notFound("appeal", ev.AppealID)
	}
	r.db.t.evidence[ev.ID] = *ev
	return nil
}

func (r *appealRepository) ListDue(_ context.Context, now time.Time, limit int) ([]models.Appeal, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	out := []models.Appeal{}
	for _, a := range r.db.t.appeals {
		if appeal.IsDue(&a, now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
