package store

import (
	"context"
	"strings"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// CreateChallenge inserts a challenge row as given.
func (s *Store) CreateChallenge(ctx context.Context, c models.Challenge) error {
	var maxApplicants any
	if c.MaxApplicants != nil {
		maxApplicants = *c.MaxApplicants
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO challenges (id, startup_id, title, description, status, deadline,
		   reward_first_place, reward_second_place, reward_third_place, reward_description,
		   number_of_winners, max_applicants, prize_pool_paid, payment_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.StartupID, c.Title, c.Description, c.Status, c.Deadline.UTC(),
		int64Arg(c.RewardFirstPlace), int64Arg(c.RewardSecondPlace), int64Arg(c.RewardThirdPlace),
		c.RewardDescription, c.NumberOfWinners, maxApplicants, boolInt(c.PrizePoolPaid), c.PaymentStatus,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return transport("insert challenge", err)
	}
	return nil
}

// GetChallenge loads one challenge.
func (s *Store) GetChallenge(ctx context.Context, id string) (models.Challenge, error) {
	c, err := scanChallenge(s.q.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE id = ?`, id))
	if err != nil {
		return models.Challenge{}, notFoundOr("query challenge", "challenge", err)
	}
	return c, nil
}

// ListChallenges returns challenges ordered by deadline. An empty status
// lists every non-draft challenge.
func (s *Store) ListChallenges(ctx context.Context, status models.ChallengeStatus) ([]models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE status != 'draft' ORDER BY deadline ASC`
	args := []any{}
	if status != "" {
		query = `SELECT ` + challengeColumns + ` FROM challenges WHERE status = ? ORDER BY deadline ASC`
		args = append(args, status)
	}
	return s.queryChallenges(ctx, query, args...)
}

// ChallengesByStartup lists a startup's own challenges, drafts included.
func (s *Store) ChallengesByStartup(ctx context.Context, startupID string) ([]models.Challenge, error) {
	return s.queryChallenges(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE startup_id = ? ORDER BY created_at DESC`, startupID)
}

func (s *Store) queryChallenges(ctx context.Context, query string, args ...any) ([]models.Challenge, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, transport("query challenges", err)
	}
	defer rows.Close()

	out := []models.Challenge{}
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, transport("iterate challenges", err)
	}
	return out, nil
}

// UpdateChallenge applies patch to a challenge.
func (s *Store) UpdateChallenge(ctx context.Context, id string, patch models.ChallengePatch) error {
	var sets []string
	var args []any
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.PrizePoolPaid != nil {
		sets = append(sets, "prize_pool_paid = ?")
		args = append(args, boolInt(*patch.PrizePoolPaid))
	}
	if patch.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, *patch.PaymentStatus)
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := s.q.ExecContext(ctx,
		`UPDATE challenges SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return transport("update challenge", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// TransitionChallenge moves a challenge from one status to another only if
// it is still in from. A lost race or repeated call yields
// ErrInvalidStateTransition.
func (s *Store) TransitionChallenge(ctx context.Context, id string, from, to models.ChallengeStatus) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE challenges SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return transport("update challenge status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		c, err := s.GetChallenge(ctx, id)
		if err != nil {
			return err
		}
		return apperr.Transition(string(c.Status), string(to))
	}
	return nil
}

func int64Arg(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
