// Package closure finalizes a challenge: it writes the winners and closes the
// challenge as a single all-or-nothing operation.
package closure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Elizabethomito/talentbridge/backend/internal/anonymize"
	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/gate"
	"github.com/Elizabethomito/talentbridge/backend/internal/lifecycle"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"github.com/Elizabethomito/talentbridge/backend/internal/payment"
	"github.com/Elizabethomito/talentbridge/backend/internal/placement"
	"github.com/Elizabethomito/talentbridge/backend/internal/store"
)

// Writer performs the closure writes. Implementations must be safe for
// concurrent calls from the winner update step.
type Writer interface {
	UpdateSubmission(ctx context.Context, id string, patch models.SubmissionPatch) error
	AppendHistory(ctx context.Context, c models.StatusChange) error
	TransitionChallenge(ctx context.Context, id string, from, to models.ChallengeStatus) error
}

// Repository reads the challenge and runs the writes in one transaction.
type Repository interface {
	GetChallenge(ctx context.Context, id string) (models.Challenge, error)
	FetchSubmissions(ctx context.Context, challengeID string) ([]models.Submission, error)
	// InTx commits only if fn returns nil.
	InTx(ctx context.Context, fn func(w Writer) error) error
}

// SQLRepository runs closures on the SQLite store.
type SQLRepository struct {
	*store.Store
}

func (r SQLRepository) InTx(ctx context.Context, fn func(w Writer) error) error {
	return r.Store.Tx(ctx, func(tx *store.Store) error { return fn(tx) })
}

// Winner is one filled placement.
type Winner struct {
	Place        int    `json:"place"`
	SubmissionID string `json:"submission_id"`
	Label        string `json:"label"`
	StudentID    string `json:"student_id"`
	// Reward is the monetary prize for the place, nil when not offered.
	Reward *int64 `json:"reward,omitempty"`
}

// Result describes a closed challenge.
type Result struct {
	ChallengeID string    `json:"challenge_id"`
	Winners     []Winner  `json:"winners"`
	ClosedAt    time.Time `json:"closed_at"`
}

// Orchestrator runs FinalizeChallenge.
type Orchestrator struct {
	repo     Repository
	payments payment.Provider
	now      func() time.Time
	group    singleflight.Group
}

// New returns an Orchestrator. payments may be nil, in which case the payment
// lock is computed from the challenge row.
func New(repo Repository, payments payment.Provider) *Orchestrator {
	return &Orchestrator{repo: repo, payments: payments, now: time.Now}
}

// WithClock replaces the time source, used by tests.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// FinalizeChallenge assigns placements and closes the challenge.
//
// placements maps place to submission id and must fill every winner slot.
// Concurrent calls by the same actor for the same challenge share one
// execution and its result.
func (o *Orchestrator) FinalizeChallenge(ctx context.Context, challengeID, actorID string, placements map[int]string) (Result, error) {
	key := challengeID + "/" + actorID
	v, err, shared := o.group.Do(key, func() (any, error) {
		// Collapsed callers must not fail because the first one went away.
		return o.finalize(context.WithoutCancel(ctx), challengeID, actorID, placements)
	})
	if shared {
		slog.DebugContext(ctx, "finalize call collapsed", "challenge_id", challengeID)
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

type plannedWrite struct {
	sub    models.Submission
	patch  models.SubmissionPatch
	change models.StatusChange
	record bool
}

func (o *Orchestrator) finalize(ctx context.Context, challengeID, actorID string, placements map[int]string) (Result, error) {
	now := o.now()

	c, err := o.repo.GetChallenge(ctx, challengeID)
	if err != nil {
		return Result{}, err
	}
	if c.StartupID != actorID {
		return Result{}, fmt.Errorf("challenge %s: %w", challengeID, apperr.ErrForbidden)
	}
	if c.Status != models.ChallengeOpen {
		return Result{}, apperr.Transition(string(c.Status), string(models.ChallengeClosed))
	}

	subs, err := o.repo.FetchSubmissions(ctx, challengeID)
	if err != nil {
		return Result{}, err
	}
	if d := gate.CanFinalize(c, subs, now); !d.Allowed {
		return Result{}, apperr.Precondition("cannot finalize: %s (%d of %d active rated)", d.Reason, d.Rated, d.Active)
	}
	locked, err := o.locked(ctx, c)
	if err != nil {
		return Result{}, err
	}
	if locked {
		return Result{}, apperr.Precondition("prize pool of %d is not paid", gate.RewardTotal(c))
	}

	slots := gate.WinnerSlots(c)
	if err := placement.RequireFull(slots, placements); err != nil {
		return Result{}, err
	}

	plan, winners, err := planWrites(c, subs, slots, placements, actorID, now)
	if err != nil {
		return Result{}, err
	}

	if err := o.write(ctx, c.ID, plan); err != nil {
		slog.ErrorContext(ctx, "challenge closure failed", "challenge_id", c.ID, "err", err)
		return Result{}, err
	}

	slog.InfoContext(ctx, "challenge closed", "challenge_id", c.ID, "winners", len(winners))
	return Result{ChallengeID: c.ID, Winners: winners, ClosedAt: now.UTC()}, nil
}

func (o *Orchestrator) locked(ctx context.Context, c models.Challenge) (bool, error) {
	if o.payments == nil {
		return gate.PaymentLocked(c), nil
	}
	st, err := o.payments.Status(ctx, c.ID)
	if err != nil {
		return false, fmt.Errorf("payment status: %w", err)
	}
	return st.Locked, nil
}

func planWrites(c models.Challenge, subs []models.Submission, slots []int, placements map[int]string, actorID string, now time.Time) ([]plannedWrite, []Winner, error) {
	byID := make(map[string]models.Submission, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
	}
	labels := anonymize.Labels(subs)
	rewards := c.Rewards()

	plan := make([]plannedWrite, 0, len(slots))
	winners := make([]Winner, 0, len(slots))
	for _, place := range slots {
		id := placements[place]
		sub, ok := byID[id]
		if !ok {
			return nil, nil, apperr.Precondition("submission %s is not part of challenge %s", id, c.ID)
		}
		if sub.Status != models.SubmissionReviewed {
			return nil, nil, apperr.Precondition("submission %s is %s, only reviewed submissions can win", labels[id], sub.Status)
		}
		from := sub.Status
		patch, err := lifecycle.MarkWinner(&sub, place)
		if err != nil {
			return nil, nil, err
		}
		change, moved := lifecycle.Change(sub.ID, from, sub.Status, actorID, now)
		plan = append(plan, plannedWrite{sub: sub, patch: patch, change: change, record: moved})

		w := Winner{Place: place, SubmissionID: id, Label: labels[id], StudentID: sub.StudentID}
		if gate.HasMonetaryReward(c) {
			w.Reward = rewards[place-1]
		}
		winners = append(winners, w)
	}
	return plan, winners, nil
}

// write runs step 1 (winner updates, concurrently) and step 2 (challenge
// status) in one transaction. Any failure rolls back both.
func (o *Orchestrator) write(ctx context.Context, challengeID string, plan []plannedWrite) error {
	var (
		mu       sync.Mutex
		updated  []string
		failed   = map[string]string{}
		stepsRan bool
	)

	err := o.repo.InTx(ctx, func(w Writer) error {
		var g errgroup.Group
		for _, p := range plan {
			g.Go(func() error {
				err := w.UpdateSubmission(ctx, p.sub.ID, p.patch)
				if err == nil && p.record {
					err = w.AppendHistory(ctx, p.change)
				}
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failed[p.sub.ID] = err.Error()
					return err
				}
				updated = append(updated, p.sub.ID)
				return nil
			})
		}
		// Every update is attempted so the report covers all of them.
		if err := g.Wait(); err != nil {
			if errors.Is(err, apperr.ErrInvalidStateTransition) {
				return fmt.Errorf("submission changed during closure: %w", err)
			}
			sort.Strings(updated)
			return &apperr.PartialWriteError{
				ChallengeID: challengeID,
				Updated:     updated,
				Failed:      failed,
				RolledBack:  true,
			}
		}

		if err := w.TransitionChallenge(ctx, challengeID, models.ChallengeOpen, models.ChallengeClosed); err != nil {
			if errors.Is(err, apperr.ErrInvalidStateTransition) {
				return err
			}
			sort.Strings(updated)
			return &apperr.PartialWriteError{
				ChallengeID:    challengeID,
				Updated:        updated,
				Failed:         failed,
				ChallengeError: err.Error(),
				RolledBack:     true,
			}
		}
		stepsRan = true
		return nil
	})
	if err != nil && stepsRan {
		// Both steps succeeded but the commit did not.
		sort.Strings(updated)
		return &apperr.PartialWriteError{
			ChallengeID:     challengeID,
			Updated:         updated,
			Failed:          failed,
			ChallengeClosed: true,
			ChallengeError:  fmt.Sprintf("commit: %v", err),
			RolledBack:      true,
		}
	}
	return err
}
