// Package gate decides whether a startup may finalize a challenge's winners.
//
// Two independent checks exist. CanFinalize looks at the deadline and at
// whether every turned-in submission has been rated. PaymentLocked looks at
// whether the monetary reward has been escrowed. Finalization needs both.
package gate

import (
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// Reason explains why finalization is blocked.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonDeadline       Reason = "deadline"
	ReasonPendingReviews Reason = "pending_reviews"
)

// Decision is the result of CanFinalize.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
	Active  int    `json:"active"`
	Rated   int    `json:"rated"`
}

// CanFinalize is pure and safe to call after every rating event.
//
// Once the deadline has passed, the only way to be blocked is an active
// submission that is not rated yet, or no active submission at all; both
// report ReasonPendingReviews.
func CanFinalize(c models.Challenge, subs []models.Submission, now time.Time) Decision {
	afterDeadline := now.After(c.Deadline)

	var active, rated int
	for _, s := range subs {
		if !s.Status.IsActive() {
			continue
		}
		active++
		if s.Status.IsRated() {
			rated++
		}
	}
	allRated := active > 0 && active == rated

	d := Decision{Active: active, Rated: rated}
	switch {
	case !afterDeadline:
		d.Reason = ReasonDeadline
	case !allRated:
		d.Reason = ReasonPendingReviews
	default:
		d.Allowed = true
	}
	return d
}

// RewardTotal sums the non-null monetary rewards.
func RewardTotal(c models.Challenge) int64 {
	var total int64
	for _, r := range c.Rewards() {
		if r != nil {
			total += *r
		}
	}
	return total
}

// IsPaid reports whether the prize pool is escrowed.
func IsPaid(c models.Challenge) bool {
	return c.PrizePoolPaid || c.PaymentStatus == models.PaymentFullyPaid
}

// PaymentLocked blocks content access and finalization until a monetary
// reward has been paid in.
func PaymentLocked(c models.Challenge) bool {
	return RewardTotal(c) > 0 && !IsPaid(c)
}

// HasMonetaryReward reports whether the fixed-place reward scheme applies.
func HasMonetaryReward(c models.Challenge) bool {
	for _, r := range c.Rewards() {
		if r != nil {
			return true
		}
	}
	return false
}

// MaxSlots is the highest placement a challenge can award.
const MaxSlots = 3

// WinnerSlots lists the placements to fill. With monetary rewards they are the
// offered places among 1..3; otherwise number_of_winners generic places.
func WinnerSlots(c models.Challenge) []int {
	if HasMonetaryReward(c) {
		var slots []int
		for i, r := range c.Rewards() {
			if r != nil {
				slots = append(slots, i+1)
			}
		}
		return slots
	}
	n := c.NumberOfWinners
	if n < 1 {
		n = 1
	}
	if n > MaxSlots {
		n = MaxSlots
	}
	slots := make([]int, n)
	for i := range slots {
		slots[i] = i + 1
	}
	return slots
}

// Status bundles everything the evaluation screen needs.
type Status struct {
	Decision
	Locked     bool  `json:"payment_locked"`
	Slots      []int `json:"slots"`
	CanProceed bool  `json:"can_proceed"`
	Closed     bool  `json:"closed"`
}

// Evaluate combines the finalize decision with the payment lock.
func Evaluate(c models.Challenge, subs []models.Submission, now time.Time) Status {
	d := CanFinalize(c, subs, now)
	locked := PaymentLocked(c)
	closed := c.Status == models.ChallengeClosed || c.Status == models.ChallengeArchived
	return Status{
		Decision:   d,
		Locked:     locked,
		Slots:      WinnerSlots(c),
		CanProceed: d.Allowed && !locked && !closed,
		Closed:     closed,
	}
}
