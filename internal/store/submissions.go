package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"github.com/google/uuid"
)

// Apply creates the applied submission for a student joining a challenge.
//
// Applying twice returns the existing row. The challenge must be open, and
// max_applicants (when set) caps the number of rows; both checks run in the
// same transaction as the insert.
func (s *Store) Apply(ctx context.Context, challengeID, studentID string, now time.Time) (models.Submission, bool, error) {
	var (
		sub     models.Submission
		created bool
	)
	err := s.Tx(ctx, func(tx *Store) error {
		existing, err := tx.SubmissionFor(ctx, challengeID, studentID)
		if err == nil {
			sub = existing
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		c, err := tx.GetChallenge(ctx, challengeID)
		if err != nil {
			return err
		}
		if c.Status != models.ChallengeOpen {
			return apperr.Precondition("challenge is %s", c.Status)
		}
		if !now.Before(c.Deadline) {
			return apperr.Precondition("challenge deadline has passed")
		}
		if c.MaxApplicants != nil {
			var count int
			if err := tx.q.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM submissions WHERE challenge_id = ?`, challengeID,
			).Scan(&count); err != nil {
				return transport("count applicants", err)
			}
			if count >= *c.MaxApplicants {
				return apperr.Precondition("challenge is full (%d applicants)", *c.MaxApplicants)
			}
		}

		sub = models.Submission{
			ID:               uuid.NewString(),
			ChallengeID:      challengeID,
			StudentID:        studentID,
			Status:           models.SubmissionApplied,
			CompletedOutputs: []string{},
			CreatedAt:        now.UTC(),
			UpdatedAt:        now.UTC(),
		}
		_, err = tx.q.ExecContext(ctx,
			`INSERT INTO submissions (id, challenge_id, student_id, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sub.ID, sub.ChallengeID, sub.StudentID, sub.Status, sub.CreatedAt, sub.UpdatedAt,
		)
		if err != nil {
			return transport("insert submission", err)
		}
		created = true
		return nil
	})
	return sub, created, err
}

// GetSubmission loads one submission.
func (s *Store) GetSubmission(ctx context.Context, id string) (models.Submission, error) {
	sub, err := scanSubmission(s.q.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id))
	if err != nil {
		return models.Submission{}, notFoundOr("query submission", "submission", err)
	}
	return sub, nil
}

// SubmissionFor loads the student's submission to a challenge.
func (s *Store) SubmissionFor(ctx context.Context, challengeID, studentID string) (models.Submission, error) {
	sub, err := scanSubmission(s.q.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE challenge_id = ? AND student_id = ?`,
		challengeID, studentID))
	if err != nil {
		return models.Submission{}, notFoundOr("query submission", "submission", err)
	}
	return sub, nil
}

// FetchSubmissions lists a challenge's submissions by creation time.
func (s *Store) FetchSubmissions(ctx context.Context, challengeID string) ([]models.Submission, error) {
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE challenge_id = ? ORDER BY created_at ASC, id ASC`,
		challengeID)
}

// SubmissionsByStudent lists a student's submissions, newest first.
func (s *Store) SubmissionsByStudent(ctx context.Context, studentID string) ([]models.Submission, error) {
	return s.querySubmissions(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE student_id = ? ORDER BY created_at DESC`,
		studentID)
}

func (s *Store) querySubmissions(ctx context.Context, query string, args ...any) ([]models.Submission, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, transport("query submissions", err)
	}
	defer rows.Close()

	out := []models.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, transport("iterate submissions", err)
	}
	return out, nil
}

// UpdateSubmission writes the non-nil fields of patch. When patch.From is
// set the row must still have that status; otherwise nothing is written and
// ErrAlreadySubmitted (for drafts) or ErrInvalidStateTransition is returned.
func (s *Store) UpdateSubmission(ctx context.Context, id string, patch models.SubmissionPatch) error {
	if patch.Empty() {
		return nil
	}
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Rating != nil {
		add("rating", *patch.Rating)
	}
	if patch.Feedback != nil {
		add("feedback_comment", *patch.Feedback)
	}
	switch {
	case patch.Position != nil:
		add("position", *patch.Position)
	case patch.ClearPosition:
		add("position", nil)
	}
	if patch.Link != nil {
		add("link", *patch.Link)
	}
	if patch.FileURL != nil {
		add("file_url", *patch.FileURL)
	}
	if patch.CompletedOutputs != nil {
		enc, err := encodeOutputs(patch.CompletedOutputs)
		if err != nil {
			return fmt.Errorf("encode completed_outputs: %w", err)
		}
		add("completed_outputs", enc)
	}
	if patch.SubmittedAt != nil {
		add("submitted_at", patch.SubmittedAt.UTC())
	}
	if patch.IsFavorite != nil {
		add("is_favorite", boolInt(*patch.IsFavorite))
	}
	if patch.IsPublic != nil {
		add("is_public_on_profile", boolInt(*patch.IsPublic))
	}
	add("updated_at", time.Now().UTC())

	where := ` WHERE id = ?`
	args = append(args, id)
	if patch.From != nil {
		where += ` AND status = ?`
		args = append(args, *patch.From)
	}

	res, err := s.q.ExecContext(ctx,
		`UPDATE submissions SET `+strings.Join(sets, ", ")+where, args...)
	if err != nil {
		return transport("update submission", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.staleSubmission(ctx, id, patch)
	}
	return nil
}

// staleSubmission explains why a patch matched no row: the submission is
// gone, or its status moved away from patch.From since it was read.
func (s *Store) staleSubmission(ctx context.Context, id string, patch models.SubmissionPatch) error {
	if patch.From == nil {
		return fmt.Errorf("submission %s: %w", id, apperr.ErrNotFound)
	}
	current, err := s.GetSubmission(ctx, id)
	if err != nil {
		return err
	}
	if *patch.From == models.SubmissionApplied {
		return fmt.Errorf("submission %s is %s: %w", id, current.Status, apperr.ErrAlreadySubmitted)
	}
	to := *patch.From
	if patch.Status != nil {
		to = *patch.Status
	}
	return apperr.Transition(string(current.Status), string(to))
}

// AppendHistory records one status change.
func (s *Store) AppendHistory(ctx context.Context, c models.StatusChange) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO submission_status_history (id, submission_id, old_status, new_status, changed_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.SubmissionID, c.OldStatus, c.NewStatus, c.ChangedBy, c.CreatedAt,
	)
	if err != nil {
		return transport("insert status history", err)
	}
	return nil
}

// History returns a submission's status changes, oldest first.
func (s *Store) History(ctx context.Context, submissionID string) ([]models.StatusChange, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, submission_id, old_status, new_status, changed_by, created_at
		 FROM submission_status_history WHERE submission_id = ? ORDER BY created_at ASC, rowid ASC`,
		submissionID)
	if err != nil {
		return nil, transport("query status history", err)
	}
	defer rows.Close()

	out := []models.StatusChange{}
	for rows.Next() {
		var c models.StatusChange
		if err := rows.Scan(&c.ID, &c.SubmissionID, &c.OldStatus, &c.NewStatus, &c.ChangedBy, &c.CreatedAt); err != nil {
			return nil, transport("scan status history", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, transport("iterate status history", err)
	}
	return out, nil
}

// SaveSubmission persists a patch and, when the status moved, its audit row,
// in one transaction.
func (s *Store) SaveSubmission(ctx context.Context, id string, patch models.SubmissionPatch, change *models.StatusChange) error {
	return s.Tx(ctx, func(tx *Store) error {
		if err := tx.UpdateSubmission(ctx, id, patch); err != nil {
			return err
		}
		if change != nil {
			return tx.AppendHistory(ctx, *change)
		}
		return nil
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
