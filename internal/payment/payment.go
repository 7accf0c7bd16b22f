// Package payment exposes the escrow state of a challenge's prize pool and
// applies checkout confirmations sent back by the payment provider.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/auth"
	"github.com/Elizabethomito/talentbridge/backend/internal/gate"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// Status is the payment view of one challenge.
type Status struct {
	ChallengeID   string               `json:"challenge_id"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	PrizePoolPaid bool                 `json:"prize_pool_paid"`
	// Total is the sum of the offered monetary rewards.
	Total  int64 `json:"total"`
	Locked bool  `json:"locked"`
}

// Provider reports whether a challenge's prize pool is escrowed.
type Provider interface {
	Status(ctx context.Context, challengeID string) (Status, error)
}

// Repository is the subset of the store the payment flow needs.
type Repository interface {
	GetChallenge(ctx context.Context, id string) (models.Challenge, error)
	UpdateChallenge(ctx context.Context, id string, patch models.ChallengePatch) error
}

// StoreProvider derives payment status from the challenge row.
type StoreProvider struct {
	Repo Repository
}

// StatusOf computes the payment view of c.
func StatusOf(c models.Challenge) Status {
	return Status{
		ChallengeID:   c.ID,
		PaymentStatus: c.PaymentStatus,
		PrizePoolPaid: c.PrizePoolPaid,
		Total:         gate.RewardTotal(c),
		Locked:        gate.PaymentLocked(c),
	}
}

func (p StoreProvider) Status(ctx context.Context, challengeID string) (Status, error) {
	c, err := p.Repo.GetChallenge(ctx, challengeID)
	if err != nil {
		return Status{}, err
	}
	return StatusOf(c), nil
}

// Confirm redeems a signed checkout token and marks the challenge paid.
//
// The token amount must cover the challenge's reward total. Confirming an
// already paid challenge is a no-op.
func Confirm(ctx context.Context, repo Repository, token, secret string) (Status, error) {
	claims, err := auth.ParseCheckoutToken(token, secret)
	if err != nil {
		return Status{}, apperr.Validation("checkout token: %v", err)
	}
	c, err := repo.GetChallenge(ctx, claims.ChallengeID)
	if err != nil {
		return Status{}, err
	}
	if gate.IsPaid(c) {
		return StatusOf(c), nil
	}
	if total := gate.RewardTotal(c); claims.Amount < total {
		return Status{}, apperr.Precondition("checkout amount %d does not cover rewards %d", claims.Amount, total)
	}

	paid := true
	fully := models.PaymentFullyPaid
	if err := repo.UpdateChallenge(ctx, c.ID, models.ChallengePatch{
		PrizePoolPaid: &paid,
		PaymentStatus: &fully,
	}); err != nil {
		return Status{}, fmt.Errorf("mark challenge paid: %w", err)
	}
	c.PrizePoolPaid = true
	c.PaymentStatus = fully
	slog.InfoContext(ctx, "prize pool escrowed", "challenge_id", c.ID, "amount", claims.Amount)
	return StatusOf(c), nil
}
