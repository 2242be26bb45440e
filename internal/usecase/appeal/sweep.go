package appeal

import (
	"context"

	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	appealdomain "github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/usecase"
)

type SweepResult struct {
	Escalated int
	Overdue   int
}

type SweepAppeals struct {
	Deps
}

func NewSweepAppeals(deps Deps) *SweepAppeals {
	return &SweepAppeals{Deps: deps}
}

// Execute escalates appeals whose tutor or student deadline lapsed and
// flags escalated appeals the platform left past its deadline. Running it
// twice at the same instant changes nothing the second time.
func (uc *SweepAppeals) Execute(ctx context.Context, limit int) (SweepResult, error) {
	var res SweepResult

	now := uc.Clock.Now()
	due, err := uc.Store.Appeals().ListDue(ctx, now, limit)
	if err != nil {
		return res, err
	}

	for _, found := range due {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		var escalated, overdue bool
		m, err := uc.mutate(ctx, found.ID, func(m *mutation) error {
			escalated = appealdomain.ApplyEvaluation(m.appeal, m.now, uc.Policy.PlatformWindow())
			if appealdomain.PlatformOverdue(m.appeal, m.now) {
				appealdomain.MarkPlatformOverdue(m.appeal, m.now)
				overdue = true
			}
			m.unchanged = !escalated && !overdue
			return nil
		})
		if err != nil {
			uc.Log.Warn("appeal sweep failed", zap.String("appeal_id", found.ID.String()), zap.Error(err))
			continue
		}

		var after usecase.After
		if escalated {
			res.Escalated++
			uc.logEscalation(&after, m.appeal)
		}
		if overdue {
			res.Overdue++
			uc.Log.Warn("appeal overdue for platform", zap.String("appeal_id", m.appeal.ID.String()))
			uc.EmitAfter(&after, nil, audit.AppealPlatformOverdue, audit.EntityAppeal, m.appeal.ID, map[string]any{
				"deadline_for_platform": m.appeal.DeadlineForPlatform,
			})
		}
		after.Run()
	}

	return res, nil
}
