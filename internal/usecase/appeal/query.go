package appeal

import (
	"context"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/domain/actor"
	"github.com/wemaster/booking-core/internal/models"
)

type GetAppeal struct {
	Deps
}

func NewGetAppeal(deps Deps) *GetAppeal {
	return &GetAppeal{Deps: deps}
}

func (uc *GetAppeal) Execute(
	ctx context.Context,
	appealID uuid.UUID,
	by actor.Actor,
) (*models.Appeal, error) {

	a, err := uc.Store.Appeals().GetAppeal(ctx, appealID)
	if err != nil {
		return nil, err
	}
	if err := requireViewer(a, by); err != nil {
		return nil, err
	}
	return a, nil
}
