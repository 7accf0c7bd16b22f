// Package anonymize hides student identity while a challenge is evaluated.
package anonymize

import (
	"fmt"
	"sort"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// Submission is the evaluator's view of a submission. StudentID is empty
// until the challenge is closed.
type Submission struct {
	ID        string                  `json:"id"`
	Label     string                  `json:"label"`
	StudentID string                  `json:"student_id,omitempty"`
	Status    models.SubmissionStatus `json:"status"`
	Rating    *int                    `json:"rating"`
	Feedback  *string                 `json:"feedback_comment"`
	Position  *int                    `json:"position"`

	// Content fields are blank while the payment lock is active.
	Link             string   `json:"link,omitempty"`
	FileURL          string   `json:"file_url,omitempty"`
	CompletedOutputs []string `json:"completed_outputs,omitempty"`

	IsFavorite  bool       `json:"is_favorite"`
	SubmittedAt *time.Time `json:"submitted_at"`
	ContentLock bool       `json:"content_locked"`
}

// Label returns the display label for the i-th submission (0-based).
func Label(i int) string {
	return fmt.Sprintf("Submission #%d", i+1)
}

// Anonymize labels submissions by creation order. The sort is stable, so the
// same input order always yields the same labels.
func Anonymize(subs []models.Submission) []Submission {
	return view(subs, false, false)
}

// View builds the evaluator's list. reveal exposes the student id (closed
// challenges); locked hides the submitted content (unpaid prize pool).
func View(subs []models.Submission, reveal, locked bool) []Submission {
	return view(subs, reveal, locked)
}

func view(subs []models.Submission, reveal, locked bool) []Submission {
	ordered := make([]models.Submission, len(subs))
	copy(ordered, subs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	out := make([]Submission, len(ordered))
	for i, s := range ordered {
		a := Submission{
			ID:          s.ID,
			Label:       Label(i),
			Status:      s.Status,
			Rating:      s.Rating,
			Feedback:    s.Feedback,
			Position:    s.Position,
			IsFavorite:  s.IsFavorite,
			SubmittedAt: s.SubmittedAt,
			ContentLock: locked,
		}
		if reveal {
			a.StudentID = s.StudentID
		}
		if !locked {
			a.Link = s.Link
			a.FileURL = s.FileURL
			a.CompletedOutputs = s.CompletedOutputs
		}
		out[i] = a
	}
	return out
}

// Labels maps submission id to label for the given list.
func Labels(subs []models.Submission) map[string]string {
	labels := make(map[string]string, len(subs))
	for _, a := range Anonymize(subs) {
		labels[a.ID] = a.Label
	}
	return labels
}
