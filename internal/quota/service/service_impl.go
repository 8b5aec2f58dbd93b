package service

import (
	"context"

	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/clock"
	"github.com/diyak0413/garden-state-grocery-gap-yay/internal/config"
	quotadomain "github.com/diyak0413/garden-state-grocery-gap-yay/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LedgerParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
	Clock  clock.Clock
	Repo   quotadomain.Repository
}

type ledger struct {
	db      *gorm.DB
	log     *zap.Logger
	ceiling int64
	clock   clock.Clock
	repo    quotadomain.Repository
}

func NewLedger(p LedgerParam) quotadomain.Ledger {
	return &ledger{
		db:      p.DB,
		log:     p.Log.Named("quota.ledger"),
		ceiling: p.Config.Quota.MonthlyCeiling,
		clock:   p.Clock,
		repo:    p.Repo,
	}
}

func (l *ledger) Ceiling() int64 { return l.ceiling }

func (l *ledger) Used(ctx context.Context) (int64, error) {
	period := quotadomain.PeriodKey(l.clock.Now(ctx))
	return l.repo.Used(ctx, l.db, period)
}

func (l *ledger) Remaining(ctx context.Context) (int64, error) {
	used, err := l.Used(ctx)
	if err != nil {
		return 0, err
	}
	remaining := l.ceiling - used
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (l *ledger) CanSpend(ctx context.Context, n int64) (bool, error) {
	used, err := l.Used(ctx)
	if err != nil {
		return false, err
	}
	return used+n <= l.ceiling, nil
}

func (l *ledger) TrySpend(ctx context.Context, n int64) error {
	now := l.clock.Now(ctx)
	period := quotadomain.PeriodKey(now)

	ok, err := l.repo.TrySpend(ctx, l.db, period, n, l.ceiling, now)
	if err != nil {
		l.log.Error("quota spend failed to commit", zap.Error(err))
		return err
	}
	if !ok {
		return quotadomain.ErrQuotaExceeded
	}
	return nil
}
