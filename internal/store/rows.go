package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const challengeColumns = `id, startup_id, title, description, status, deadline,
 reward_first_place, reward_second_place, reward_third_place, reward_description,
 number_of_winners, max_applicants, prize_pool_paid, payment_status, created_at, updated_at`

const submissionColumns = `id, challenge_id, student_id, status, rating, feedback_comment, position,
 link, file_url, completed_outputs, submitted_at, is_favorite, is_public_on_profile, created_at, updated_at`

// challengeRow holds the raw column values before normalization.
type challengeRow struct {
	ID, StartupID, Title, Description, Status string
	Deadline                                 time.Time
	First, Second, Third                     sql.NullInt64
	RewardDescription                        string
	NumberOfWinners                          int
	MaxApplicants                            sql.NullInt64
	PrizePoolPaid                            bool
	PaymentStatus                            string
	CreatedAt, UpdatedAt                     time.Time
}

func scanChallenge(sc scanner) (models.Challenge, error) {
	var r challengeRow
	if err := sc.Scan(&r.ID, &r.StartupID, &r.Title, &r.Description, &r.Status, &r.Deadline,
		&r.First, &r.Second, &r.Third, &r.RewardDescription,
		&r.NumberOfWinners, &r.MaxApplicants, &r.PrizePoolPaid, &r.PaymentStatus,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return models.Challenge{}, err
	}
	return parseChallenge(r)
}

func parseChallenge(r challengeRow) (models.Challenge, error) {
	status, err := ParseChallengeStatus(r.Status)
	if err != nil {
		return models.Challenge{}, fmt.Errorf("challenge %s: %w", r.ID, err)
	}
	pay, err := ParsePaymentStatus(r.PaymentStatus)
	if err != nil {
		return models.Challenge{}, fmt.Errorf("challenge %s: %w", r.ID, err)
	}
	c := models.Challenge{
		ID:                r.ID,
		StartupID:         r.StartupID,
		Title:             r.Title,
		Description:       r.Description,
		Status:            status,
		Deadline:          r.Deadline.UTC(),
		RewardFirstPlace:  nullInt64(r.First),
		RewardSecondPlace: nullInt64(r.Second),
		RewardThirdPlace:  nullInt64(r.Third),
		RewardDescription: r.RewardDescription,
		NumberOfWinners:   r.NumberOfWinners,
		PrizePoolPaid:     r.PrizePoolPaid,
		PaymentStatus:     pay,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
	for _, reward := range c.Rewards() {
		if reward != nil && *reward < 0 {
			return models.Challenge{}, fmt.Errorf("challenge %s: negative reward %d", r.ID, *reward)
		}
	}
	if r.MaxApplicants.Valid {
		n := int(r.MaxApplicants.Int64)
		c.MaxApplicants = &n
	}
	return c, nil
}

// submissionRow holds the raw column values before normalization.
type submissionRow struct {
	ID, ChallengeID, StudentID, Status string
	Rating, Position                   sql.NullInt64
	Feedback                           sql.NullString
	Link, FileURL, Outputs             string
	SubmittedAt                        sql.NullTime
	IsFavorite, IsPublic               bool
	CreatedAt, UpdatedAt               time.Time
}

func scanSubmission(sc scanner) (models.Submission, error) {
	var r submissionRow
	if err := sc.Scan(&r.ID, &r.ChallengeID, &r.StudentID, &r.Status, &r.Rating, &r.Feedback, &r.Position,
		&r.Link, &r.FileURL, &r.Outputs, &r.SubmittedAt, &r.IsFavorite, &r.IsPublic,
		&r.CreatedAt, &r.UpdatedAt); err != nil {
		return models.Submission{}, err
	}
	return parseSubmission(r)
}

func parseSubmission(r submissionRow) (models.Submission, error) {
	status, err := ParseSubmissionStatus(r.Status)
	if err != nil {
		return models.Submission{}, fmt.Errorf("submission %s: %w", r.ID, err)
	}
	s := models.Submission{
		ID:                r.ID,
		ChallengeID:       r.ChallengeID,
		StudentID:         r.StudentID,
		Status:            status,
		Link:              r.Link,
		FileURL:           r.FileURL,
		IsFavorite:        r.IsFavorite,
		IsPublicOnProfile: r.IsPublic,
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
	if r.Rating.Valid {
		if r.Rating.Int64 < 1 || r.Rating.Int64 > 10 {
			return models.Submission{}, fmt.Errorf("submission %s: rating %d out of range", r.ID, r.Rating.Int64)
		}
		v := int(r.Rating.Int64)
		s.Rating = &v
	}
	if r.Position.Valid {
		if status != models.SubmissionWinner {
			return models.Submission{}, fmt.Errorf("submission %s: position set on %s submission", r.ID, status)
		}
		v := int(r.Position.Int64)
		s.Position = &v
	}
	if r.Feedback.Valid {
		fb := r.Feedback.String
		s.Feedback = &fb
	}
	if r.SubmittedAt.Valid {
		at := r.SubmittedAt.Time.UTC()
		s.SubmittedAt = &at
	}
	s.CompletedOutputs, err = parseOutputs(r.Outputs)
	if err != nil {
		return models.Submission{}, fmt.Errorf("submission %s: %w", r.ID, err)
	}
	return s, nil
}

// parseOutputs accepts the JSON array stored in completed_outputs. Older rows
// may hold an object keyed by output name; its keys with a true value are
// kept, in sorted order.
func parseOutputs(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		if list == nil {
			list = []string{}
		}
		return list, nil
	}
	var set map[string]bool
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("completed_outputs is neither a list nor an object: %w", err)
	}
	list = make([]string, 0, len(set))
	for k, done := range set {
		if done {
			list = append(list, k)
		}
	}
	sort.Strings(list)
	return list, nil
}

func encodeOutputs(outputs []string) (string, error) {
	if outputs == nil {
		outputs = []string{}
	}
	b, err := json.Marshal(outputs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// ParseChallengeStatus rejects unknown status strings.
func ParseChallengeStatus(s string) (models.ChallengeStatus, error) {
	switch st := models.ChallengeStatus(s); st {
	case models.ChallengeDraft, models.ChallengeOpen, models.ChallengeClosed, models.ChallengeArchived:
		return st, nil
	}
	return "", fmt.Errorf("unknown challenge status %q", s)
}

// ParseSubmissionStatus rejects unknown status strings.
func ParseSubmissionStatus(s string) (models.SubmissionStatus, error) {
	switch st := models.SubmissionStatus(s); st {
	case models.SubmissionApplied, models.SubmissionSubmitted, models.SubmissionReviewed,
		models.SubmissionWinner, models.SubmissionRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown submission status %q", s)
}

// ParsePaymentStatus rejects unknown payment states.
func ParsePaymentStatus(s string) (models.PaymentStatus, error) {
	switch st := models.PaymentStatus(s); st {
	case models.PaymentUnpaid, models.PaymentPending, models.PaymentFullyPaid:
		return st, nil
	}
	return "", fmt.Errorf("unknown payment status %q", s)
}
