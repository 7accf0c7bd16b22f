package closure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo keeps one challenge in memory and restores its snapshot when a
// transaction fails.
type memRepo struct {
	mu          sync.Mutex
	challenge   models.Challenge
	subs        map[string]models.Submission
	order       []string
	history     []models.StatusChange
	failUpdate  map[string]error
	failClose   error
	transitions int
}

func (r *memRepo) GetChallenge(_ context.Context, id string) (models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != r.challenge.ID {
		return models.Challenge{}, apperr.ErrNotFound
	}
	return r.challenge, nil
}

func (r *memRepo) FetchSubmissions(_ context.Context, challengeID string) ([]models.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Submission{}
	for _, id := range r.order {
		if s := r.subs[id]; s.ChallengeID == challengeID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) InTx(ctx context.Context, fn func(w Writer) error) error {
	r.mu.Lock()
	challenge := r.challenge
	subs := make(map[string]models.Submission, len(r.subs))
	for k, v := range r.subs {
		subs[k] = v
	}
	history := append([]models.StatusChange(nil), r.history...)
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.challenge, r.subs, r.history = challenge, subs, history
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) UpdateSubmission(_ context.Context, id string, patch models.SubmissionPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failUpdate[id]; err != nil {
		return err
	}
	s, ok := r.subs[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if patch.From != nil && *patch.From != s.Status {
		return apperr.Transition(string(s.Status), string(models.SubmissionWinner))
	}
	patch.Apply(&s)
	r.subs[id] = s
	return nil
}

func (r *memRepo) AppendHistory(_ context.Context, c models.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, c)
	return nil
}

func (r *memRepo) TransitionChallenge(_ context.Context, id string, from, to models.ChallengeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failClose != nil {
		return r.failClose
	}
	if r.challenge.Status != from {
		return apperr.Transition(string(r.challenge.Status), string(to))
	}
	r.challenge.Status = to
	r.transitions++
	return nil
}

var (
	deadline = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	later    = deadline.Add(time.Hour)
)

func money(v int64) *int64 { return &v }
func rating(v int) *int    { return &v }

func newRepo(mutate func(*models.Challenge), subs ...models.Submission) *memRepo {
	c := models.Challenge{
		ID:               "c1",
		StartupID:        "startup",
		Status:           models.ChallengeOpen,
		Deadline:         deadline,
		RewardFirstPlace: money(1000),
		PrizePoolPaid:    true,
		PaymentStatus:    models.PaymentFullyPaid,
	}
	if mutate != nil {
		mutate(&c)
	}
	r := &memRepo{challenge: c, subs: map[string]models.Submission{}, failUpdate: map[string]error{}}
	for i, s := range subs {
		if s.ChallengeID == "" {
			s.ChallengeID = c.ID
		}
		s.CreatedAt = deadline.Add(-time.Duration(len(subs)-i) * time.Hour)
		r.subs[s.ID] = s
		r.order = append(r.order, s.ID)
	}
	return r
}

func reviewed(id string, r int) models.Submission {
	return models.Submission{ID: id, StudentID: "student-" + id, Status: models.SubmissionReviewed, Rating: rating(r)}
}

func newOrchestrator(r *memRepo) *Orchestrator {
	return New(r, nil).WithClock(func() time.Time { return later })
}

func TestFinalize_SingleFinancialWinner(t *testing.T) {
	repo := newRepo(nil, reviewed("A", 9), reviewed("B", 7))

	res, err := newOrchestrator(repo).FinalizeChallenge(context.Background(), "c1", "startup", map[int]string{1: "A"})
	require.NoError(t, err)

	require.Len(t, res.Winners, 1)
	assert.Equal(t, "A", res.Winners[0].SubmissionID)
	assert.Equal(t, "Submission #1", res.Winners[0].Label)
	require.NotNil(t, res.Winners[0].Reward)
	assert.Equal(t, int64(1000), *res.Winners[0].Reward)

	a, b := repo.subs["A"], repo.subs["B"]
	assert.Equal(t, models.SubmissionWinner, a.Status)
	require.NotNil(t, a.Position)
	assert.Equal(t, 1, *a.Position)
	assert.Equal(t, models.SubmissionReviewed, b.Status)
	assert.Nil(t, b.Position)
	assert.Equal(t, models.ChallengeClosed, repo.challenge.Status)

	require.Len(t, repo.history, 1)
	assert.Equal(t, models.SubmissionReviewed, repo.history[0].OldStatus)
	assert.Equal(t, models.SubmissionWinner, repo.history[0].NewStatus)
	assert.Equal(t, "startup", repo.history[0].ChangedBy)
}

func TestFinalize_NonFinancialTwoWinners(t *testing.T) {
	repo := newRepo(func(c *models.Challenge) {
		c.RewardFirstPlace = nil
		c.RewardDescription = "Internship interview"
		c.NumberOfWinners = 2
		c.PrizePoolPaid = false
		c.PaymentStatus = models.PaymentUnpaid
	}, reviewed("A", 6), reviewed("B", 8))
	o := newOrchestrator(repo)

	_, err := o.FinalizeChallenge(context.Background(), "c1", "startup", map[int]string{1: "B"})
	assert.True(t, errors.Is(err, apperr.ErrPreconditionFailed), "second slot is empty")

	res, err := o.FinalizeChallenge(context.Background(), "c1", "startup", map[int]string{1: "B", 2: "A"})
	require.NoError(t, err)
	require.Len(t, res.Winners, 2)
	assert.Nil(t, res.Winners[0].Reward)
	assert.Equal(t, 2, *repo.subs["A"].Position)
	assert.Equal(t, 1, *repo.subs["B"].Position)
}

func TestFinalize_RollsBackOnWinnerFailure(t *testing.T) {
	repo := newRepo(func(c *models.Challenge) {
		c.RewardSecondPlace = money(500)
	}, reviewed("A", 9), reviewed("B", 7))
	repo.failUpdate["B"] = errors.New("disk I/O error")

	_, err := newOrchestrator(repo).FinalizeChallenge(context.Background(), "c1", "startup", map[int]string{1: "A", 2: "B"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPartialWrite))

	var pw *apperr.PartialWriteError
	require.True(t, errors.As(err, &pw))
	assert.Equal(t, []string{"A"}, pw.Updated)
	assert.Equal(t, map[string]string{"B": "disk I/O error"}, pw.Failed)
	assert.False(t, pw.ChallengeClosed)
	assert.True(t, pw.RolledBack)

	assert.Equal(t, models.SubmissionReviewed, repo.subs["A"].Status)
	assert.Nil(t, repo.subs["A"].Position)
	assert.Equal(t, models.ChallengeOpen, repo.challenge.Status)
	assert.Empty(t, repo.history)
}

func TestFinalize_RollsBackOnChallengeFailure(t *testing.T) {
	repo := newRepo(nil, reviewed("A", 9))
	repo.failClose = errors.New("database is locked")

	_, err := newOrchestrator(repo).FinalizeChallenge(context.Background(), "c1", "startup", map[int]string{1: "A"})
	var pw *apperr.PartialWriteError
	require.True(t, errors.As(err, &pw))
	assert.Equal(t, []string{"A"}, pw.Updated)
	assert.Equal(t, "database is locked", pw.ChallengeError)
	assert.False(t, pw.ChallengeClosed)

	assert.Equal(t, models.SubmissionReviewed, repo.subs["A"].Status)
	assert.Equal(t, models.ChallengeOpen, repo.challenge.Status)
}

func TestFinalize_PaymentLockBlocks(t *testing.T) {
	repo := newRepo(func(c *models.Challenge) {
		c.PrizePoolPaid = false
		c.PaymentStatus = models.PaymentPending
	}, reviewed("A", 9))

	_, err := newOrchestrator(repo).FinalizeChallenge(context.Background(), "c1", "startup", map[int]string{1: "A"})
	assert.True(t, errors.Is(err, apperr.ErrPreconditionFailed))
	assert.Equal(t, models.SubmissionReviewed, repo.subs["A"].Status)
	assert.Equal(t, models.ChallengeOpen, repo.challenge.Status)
}

func TestFinalize_Preconditions(t *testing.T) {
	cases := []struct {
		name       string
		mutate     func(*models.Challenge)
		subs       []models.Submission
		actor      string
		placements map[int]string
		want       error
	}{
		{
			name:       "not the owner",
			subs:       []models.Submission{reviewed("A", 9)},
			actor:      "someone-else",
			placements: map[int]string{1: "A"},
			want:       apperr.ErrForbidden,
		},
		{
			name:       "already closed",
			mutate:     func(c *models.Challenge) { c.Status = models.ChallengeClosed },
			subs:       []models.Submission{reviewed("A", 9)},
			placements: map[int]string{1: "A"},
			want:       apperr.ErrInvalidStateTransition,
		},
		{
			name:       "before deadline",
			mutate:     func(c *models.Challenge) { c.Deadline = later.Add(time.Hour) },
			subs:       []models.Submission{reviewed("A", 9)},
			placements: map[int]string{1: "A"},
			want:       apperr.ErrPreconditionFailed,
		},
		{
			name: "pending review",
			subs: []models.Submission{
				reviewed("A", 9),
				{ID: "B", StudentID: "b", Status: models.SubmissionSubmitted},
			},
			placements: map[int]string{1: "A"},
			want:       apperr.ErrPreconditionFailed,
		},
		{
			name:       "no active submissions",
			subs:       []models.Submission{{ID: "A", StudentID: "a", Status: models.SubmissionApplied}},
			placements: map[int]string{1: "A"},
			want:       apperr.ErrPreconditionFailed,
		},
		{
			name: "rejected submission placed",
			subs: []models.Submission{
				reviewed("A", 9),
				{ID: "B", StudentID: "b", Status: models.SubmissionRejected, Rating: rating(3)},
			},
			placements: map[int]string{1: "B"},
			want:       apperr.ErrPreconditionFailed,
		},
		{
			name:       "foreign submission placed",
			subs:       []models.Submission{reviewed("A", 9)},
			placements: map[int]string{1: "elsewhere"},
			want:       apperr.ErrPreconditionFailed,
		},
		{
			name:       "place not offered",
			subs:       []models.Submission{reviewed("A", 9), reviewed("B", 5)},
			placements: map[int]string{1: "A", 3: "B"},
			want:       apperr.ErrPreconditionFailed,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newRepo(tc.mutate, tc.subs...)
			actor := tc.actor
			if actor == "" {
				actor = "startup"
			}
			_, err := newOrchestrator(repo).FinalizeChallenge(context.Background(), "c1", actor, tc.placements)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.Zero(t, repo.transitions)
			assert.Empty(t, repo.history)
		})
	}
}

func TestFinalize_SecondCallIsInvalidTransition(t *testing.T) {
	repo := newRepo(nil, reviewed("A", 9))
	o := newOrchestrator(repo)

	_, err := o.FinalizeChallenge(context.Background(), "c1", "startup", map[int]string{1: "A"})
	require.NoError(t, err)

	_, err = o.FinalizeChallenge(context.Background(), "c1", "startup", map[int]string{1: "A"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition))
	assert.Equal(t, 1, repo.transitions)
}

func TestFinalize_ConcurrentCallsCloseOnce(t *testing.T) {
	repo := newRepo(nil, reviewed("A", 9), reviewed("B", 4))
	o := newOrchestrator(repo)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = o.FinalizeChallenge(context.Background(), "c1", "startup", map[int]string{1: "A"})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			assert.True(t, errors.Is(err, apperr.ErrInvalidStateTransition), "got %v", err)
		}
	}
	assert.Equal(t, 1, repo.transitions)
	assert.Equal(t, models.ChallengeClosed, repo.challenge.Status)
}
