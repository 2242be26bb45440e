package appeal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	appealdomain "github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/infra/storage"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type EvidenceInput struct {
	Type        appealdomain.EvidenceType
	ContentType string
	Body        []byte
}

type AddEvidence struct {
	Deps
}

func NewAddEvidence(deps Deps) *AddEvidence {
	return &AddEvidence{Deps: deps}
}

// Execute stores the upload first and records it afterwards; when the
// record cannot be written the stored object is removed again.
func (uc *AddEvidence) Execute(
	ctx context.Context,
	appealID uuid.UUID,
	uploaderID uuid.UUID,
	in EvidenceInput,
) (*models.AppealEvidence, error) {

	a, err := uc.Store.Appeals().GetAppeal(ctx, appealID)
	if err != nil {
		return nil, err
	}
	if a.StudentID != uploaderID && a.TutorID != uploaderID {
		return nil, fmt.Errorf("%w: not a party to appeal %s", httperr.ErrForbidden, a.ID)
	}
	if appealdomain.IsTerminal(appealdomain.Status(a.Status)) {
		return nil, fmt.Errorf("%w: appeal is %s", httperr.ErrInvalidTransition, a.Status)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: evidence type %q", httperr.ErrInvalidInput, in.Type)
	}

	obj, err := storage.Normalize(in.ContentType, in.Body, storage.MaxImageSide)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httperr.ErrInvalidInput, err)
	}

	evidenceID := uuid.New()
	key := fmt.Sprintf("appeals/%s/%s%s", a.ID, evidenceID, obj.Ext)

	url, err := uc.Evidence.Put(ctx, key, obj.ContentType, obj.Body)
	if err != nil {
		uc.Log.Error("evidence upload failed", zap.String("appeal_id", a.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: evidence upload: %v", httperr.ErrExternalServiceFailure, err)
	}

	var ev *models.AppealEvidence
	err = uc.LockBooking(ctx, a.BookingID, func() error {
		now := uc.Clock.Now()

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			current, err := tx.Appeals().GetAppeal(ctx, appealID)
			if err != nil {
				return err
			}

			ev, err = appealdomain.NewEvidence(current, in.Type, obj.ContentType, key, url, uploaderID, now)
			if err != nil {
				return err
			}
			ev.ID = evidenceID
			return tx.Appeals().AddEvidence(ctx, ev)
		})
	})
	if err != nil {
		if derr := uc.Evidence.Delete(ctx, key); derr != nil {
			uc.Log.Warn("orphaned evidence object", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}

	uc.Log.Info("evidence added",
		zap.String("appeal_id", appealID.String()),
		zap.String("type", ev.Type),
		zap.Int("bytes", len(obj.Body)),
	)

	var after usecase.After
	uc.EmitAfter(&after, &uploaderID, audit.AppealEvidenceAdded, audit.EntityAppeal, appealID, map[string]any{
		"evidence_id": ev.ID,
		"type":        ev.Type,
	})
	after.Run()

	return ev, nil
}
