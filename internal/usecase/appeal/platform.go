package appeal

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	appealdomain "github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/domain/pricing"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

type StartProcessing struct {
	Deps
}

func NewStartProcessing(deps Deps) *StartProcessing {
	return &StartProcessing{Deps: deps}
}

func (uc *StartProcessing) Execute(
	ctx context.Context,
	appealID uuid.UUID,
	adminID uuid.UUID,
) (*models.Appeal, error) {

	m, err := uc.mutate(ctx, appealID, func(m *mutation) error {
		return appealdomain.StartProcessing(m.appeal)
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("appeal claimed by platform",
		zap.String("appeal_id", appealID.String()),
		zap.String("admin_id", adminID.String()),
	)

	var after usecase.After
	uc.EmitAfter(&after, &adminID, audit.AppealProcessing, audit.EntityAppeal, appealID, nil)
	after.Run()

	return m.appeal, nil
}

type ResolveInput struct {
	Decision     appealdomain.Decision
	RefundAmount int64
	OverrideFee  bool
	Response     string
}

type PlatformResolve struct {
	Deps
}

func NewPlatformResolve(deps Deps) *PlatformResolve {
	return &PlatformResolve{Deps: deps}
}

// Execute is the final word on an escalated appeal. The refund may include
// the platform fee only when OverrideFee is set.
func (uc *PlatformResolve) Execute(
	ctx context.Context,
	appealID uuid.UUID,
	adminID uuid.UUID,
	in ResolveInput,
) (*models.Appeal, error) {

	m, err := uc.mutate(ctx, appealID, func(m *mutation) error {
		refundCap := pricing.AppealRefundCap(m.booking.Price, in.OverrideFee)

		refund, err := appealdomain.PlatformResolve(
			m.appeal,
			in.Decision,
			in.RefundAmount,
			in.OverrideFee,
			in.Response,
			refundCap,
			m.now,
		)
		if err != nil {
			return err
		}
		return m.settleFunds(ctx, refund)
	})
	if err != nil {
		return nil, err
	}

	var after usecase.After
	uc.logResolution(&after, m, &adminID)
	after.Run()

	return m.appeal, nil
}
