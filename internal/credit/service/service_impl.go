package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/scailup/creditcore/internal/cache"
	"github.com/scailup/creditcore/internal/clock"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	obsmetrics "github.com/scailup/creditcore/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       creditdomain.Repository
	Clock      clock.Clock
	Plans      cache.PlanCache     `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       creditdomain.Repository
	clock      clock.Clock
	plans      cache.PlanCache
	obsMetrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) creditdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("credit.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      p.Clock,
		plans:      p.Plans,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Consume(ctx context.Context, req creditdomain.ConsumeRequest) (creditdomain.ConsumptionResult, error) {
	var result creditdomain.ConsumptionResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.ConsumeInTx(ctx, tx, req)
		return err
	})
	return result, err
}

// ConsumeInTx debits oldest-expiring balances first. Steps 3-4 (drain +
// journal) commit atomically with whatever else runs on tx; row locks on the
// balance set make concurrent debits for the same key serialize.
func (s *Service) ConsumeInTx(ctx context.Context, tx *gorm.DB, req creditdomain.ConsumeRequest) (creditdomain.ConsumptionResult, error) {
	if req.Amount <= 0 {
		s.incRejected("invalid_amount")
		return creditdomain.ConsumptionResult{}, creditdomain.ErrInvalidAmount
	}

	plan, err := s.repo.FindPlan(ctx, req.ClientID, req.Module, req.CreditType)
	if err != nil {
		return creditdomain.ConsumptionResult{}, err
	}
	if plan != nil && plan.Unlimited {
		return creditdomain.ConsumptionResult{Consumed: req.Amount, Remaining: 0, Unlimited: true}, nil
	}

	now := s.clock.Now()
	balances, err := s.repo.AvailableBalances(ctx, tx, req.ClientID, req.Module, req.CreditType, now, true)
	if err != nil {
		return creditdomain.ConsumptionResult{}, err
	}

	var available int64
	for _, balance := range balances {
		available += balance.Amount
	}
	if available < req.Amount {
		s.incRejected("insufficient")
		return creditdomain.ConsumptionResult{}, &creditdomain.InsufficientCreditsError{
			Available: available,
			Requested: req.Amount,
		}
	}

	remaining := req.Amount
	for _, balance := range balances {
		if remaining <= 0 {
			break
		}
		drain := min(remaining, balance.Amount)
		if err := s.repo.SetAmount(ctx, tx, balance.ID, balance.Amount-drain, now); err != nil {
			return creditdomain.ConsumptionResult{}, err
		}
		remaining -= drain
	}

	if err := s.repo.AppendLog(ctx, tx, &creditdomain.UsageLog{
		ID:         s.genID.Generate(),
		ClientID:   req.ClientID,
		Module:     req.Module,
		CreditType: req.CreditType,
		Amount:     -req.Amount,
		Reason:     req.Reason,
		CreatedAt:  now,
	}); err != nil {
		return creditdomain.ConsumptionResult{}, err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.CreditsConsumed.WithLabelValues(string(req.Module), string(req.CreditType)).Add(float64(req.Amount))
	}

	return creditdomain.ConsumptionResult{
		Consumed:  req.Amount,
		Remaining: available - req.Amount,
	}, nil
}

func (s *Service) Grant(ctx context.Context, req creditdomain.GrantRequest) error {
	if req.Amount <= 0 {
		return creditdomain.ErrInvalidAmount
	}

	now := s.clock.Now()
	origin := req.Origin
	if origin == "" {
		origin = creditdomain.BalanceOriginGrant
	}
	originCycle := req.OriginCycle
	if originCycle.IsZero() {
		originCycle = now
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateBalance(ctx, tx, &creditdomain.CreditBalance{
			ID:          s.genID.Generate(),
			ClientID:    req.ClientID,
			Module:      req.Module,
			CreditType:  req.CreditType,
			Amount:      req.Amount,
			ExpiresAt:   req.ExpiresAt,
			Origin:      origin,
			OriginCycle: originCycle,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return err
		}

		return s.repo.AppendLog(ctx, tx, &creditdomain.UsageLog{
			ID:         s.genID.Generate(),
			ClientID:   req.ClientID,
			Module:     req.Module,
			CreditType: req.CreditType,
			Amount:     req.Amount,
			Reason:     req.Reason,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return err
	}

	if s.obsMetrics != nil {
		s.obsMetrics.CreditsGranted.WithLabelValues(string(req.Module), string(req.CreditType), req.Reason).Add(float64(req.Amount))
	}
	return nil
}

func (s *Service) Balance(ctx context.Context, clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType) (creditdomain.BalanceSummary, error) {
	plan, err := s.lookupPlan(ctx, clientID, module, creditType)
	if err != nil {
		return creditdomain.BalanceSummary{}, err
	}
	if plan == nil {
		return creditdomain.BalanceSummary{}, creditdomain.ErrPlanNotFound
	}

	summary := creditdomain.BalanceSummary{
		MonthlyLimit:   plan.MonthlyLimit,
		RolloverMonths: plan.RolloverMonths,
		ResetInterval:  plan.ResetInterval,
		Unlimited:      plan.Unlimited,
	}
	if plan.Unlimited {
		return summary, nil
	}

	now := s.clock.Now()
	balances, err := s.repo.AvailableBalances(ctx, nil, clientID, module, creditType, now, false)
	if err != nil {
		return creditdomain.BalanceSummary{}, err
	}
	for _, balance := range balances {
		summary.RemainingCredits += balance.Amount
	}

	periodStart, err := s.currentPeriodStart(ctx, nil, clientID, now)
	if err != nil {
		return creditdomain.BalanceSummary{}, err
	}
	used, err := s.repo.ConsumedSince(ctx, nil, clientID, module, creditType, periodStart)
	if err != nil {
		return creditdomain.BalanceSummary{}, err
	}
	summary.UsedThisPeriod = used

	return summary, nil
}

// lookupPlan serves the display path through the plan cache when one is
// wired. Consumption always goes through the repository so a stale plan can
// never gate a debit.
func (s *Service) lookupPlan(ctx context.Context, clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType) (*creditdomain.Plan, error) {
	if s.plans != nil {
		if plan, ok := s.plans.GetPlan(clientID, module, creditType); ok {
			return plan, nil
		}
	}
	plan, err := s.repo.FindPlan(ctx, clientID, module, creditType)
	if err != nil {
		return nil, err
	}
	if s.plans != nil {
		s.plans.SetPlan(clientID, module, creditType, plan)
	}
	return plan, nil
}

func (s *Service) currentPeriodStart(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, now time.Time) (time.Time, error) {
	db := s.db
	if tx != nil {
		db = tx
	}

	var lastReset sql.NullTime
	err := db.WithContext(ctx).Raw(
		`SELECT last_credits_reset_at FROM clients WHERE id = ?`,
		clientID,
	).Scan(&lastReset).Error
	if err != nil {
		return time.Time{}, err
	}
	if lastReset.Valid {
		return lastReset.Time, nil
	}
	return now.AddDate(0, -1, 0), nil
}
