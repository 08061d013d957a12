package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	creditdomain "github.com/scailup/creditcore/internal/credit/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ComputeRolloverInTx carries unused credits across the cycle boundary.
//
// Each carried slice keeps its original OriginCycle, so a credit that rolls
// over repeatedly still ages out exactly rolloverMonths after the cycle that
// produced it. Slices older than the cutoff are zeroed and summed as expired.
func (s *Service) ComputeRolloverInTx(ctx context.Context, tx *gorm.DB, clientID snowflake.ID, module creditdomain.Module, creditType creditdomain.CreditType, rolloverMonths int, resetDate time.Time) (creditdomain.RolloverResult, error) {
	if tx == nil || resetDate.IsZero() {
		return creditdomain.RolloverResult{}, creditdomain.ErrInvalidRolloverInput
	}
	if rolloverMonths <= 0 {
		return creditdomain.RolloverResult{}, nil
	}

	plan, err := s.repo.FindPlan(ctx, clientID, module, creditType)
	if err != nil {
		return creditdomain.RolloverResult{}, err
	}
	if plan == nil {
		return creditdomain.RolloverResult{}, creditdomain.ErrPlanNotFound
	}
	if plan.Unlimited {
		return creditdomain.RolloverResult{}, nil
	}

	now := s.clock.Now()
	cutoff := resetDate.AddDate(0, -rolloverMonths, 0)
	nextBoundary := resetDate.AddDate(0, 1, 0)

	periodStart, err := s.currentPeriodStart(ctx, tx, clientID, resetDate)
	if err != nil {
		return creditdomain.RolloverResult{}, err
	}
	used, err := s.repo.ConsumedSince(ctx, tx, clientID, module, creditType, periodStart)
	if err != nil {
		return creditdomain.RolloverResult{}, err
	}

	// Over-usage never produces a negative carry.
	currentUnused := plan.MonthlyLimit - used
	if currentUnused < 0 {
		currentUnused = 0
	}

	slices, err := s.repo.RolloverSlices(ctx, tx, clientID, module, creditType)
	if err != nil {
		return creditdomain.RolloverResult{}, err
	}

	var result creditdomain.RolloverResult
	for _, slice := range slices {
		if err := s.repo.SetAmount(ctx, tx, slice.ID, 0, now); err != nil {
			return creditdomain.RolloverResult{}, err
		}

		if slice.OriginCycle.Before(cutoff) {
			result.ExpiredAmount += slice.Amount
			continue
		}

		// Re-issue the slice for the new cycle, origin age preserved.
		if err := s.repo.CreateBalance(ctx, tx, &creditdomain.CreditBalance{
			ID:          s.genID.Generate(),
			ClientID:    clientID,
			Module:      module,
			CreditType:  creditType,
			Amount:      slice.Amount,
			ExpiresAt:   nextBoundary,
			Origin:      creditdomain.BalanceOriginRollover,
			OriginCycle: slice.OriginCycle,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return creditdomain.RolloverResult{}, err
		}
		result.RolloverAmount += slice.Amount
	}

	if currentUnused > 0 {
		if err := s.repo.CreateBalance(ctx, tx, &creditdomain.CreditBalance{
			ID:          s.genID.Generate(),
			ClientID:    clientID,
			Module:      module,
			CreditType:  creditType,
			Amount:      currentUnused,
			ExpiresAt:   nextBoundary,
			Origin:      creditdomain.BalanceOriginRollover,
			OriginCycle: periodStart,
			CreatedAt:   now,
			UpdatedAt:   now,
		}); err != nil {
			return creditdomain.RolloverResult{}, err
		}
		result.RolloverAmount += currentUnused
	}

	s.log.Debug("rollover computed",
		zap.String("client_id", clientID.String()),
		zap.String("module", string(module)),
		zap.String("credit_type", string(creditType)),
		zap.Int64("rollover_amount", result.RolloverAmount),
		zap.Int64("expired_amount", result.ExpiredAmount),
	)

	return result, nil
}

func (s *Service) incRejected(cause string) {
	if s.obsMetrics != nil {
		s.obsMetrics.ConsumeRejected.WithLabelValues(cause).Inc()
	}
}
