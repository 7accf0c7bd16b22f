// Package lifecycle enforces the submission status machine:
//
//	applied → submitted → {reviewed, rejected} → winner
//
// Every operation validates the current state, applies the change to the
// submission in place and returns the patch the store must persist. None of
// them touch storage, so validation failures never reach the database. Each
// patch records the status it was validated against in From, so a write
// based on a stale read is refused by the store.
package lifecycle

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

const (
	MinRating = 1
	MaxRating = 10
	// MinCommentLength applies to the first review of a submission.
	MinCommentLength = 10
)

func statusPtr(s models.SubmissionStatus) *models.SubmissionStatus { return &s }

// EditDraft updates the student-editable fields while the submission is still
// at applied. Once submitted those fields are frozen.
func EditDraft(sub *models.Submission, link, fileURL string, outputs []string) (models.SubmissionPatch, error) {
	if sub.Status != models.SubmissionApplied {
		return models.SubmissionPatch{}, apperr.ErrAlreadySubmitted
	}
	link = strings.TrimSpace(link)
	fileURL = strings.TrimSpace(fileURL)
	patch := models.SubmissionPatch{
		From:             statusPtr(sub.Status),
		Link:             &link,
		FileURL:          &fileURL,
		CompletedOutputs: nonNil(outputs),
	}
	patch.Apply(sub)
	return patch, nil
}

// Submit turns an applied submission in. A link or a file is required.
func Submit(sub *models.Submission, link, fileURL string, outputs []string, now time.Time) (models.SubmissionPatch, error) {
	if sub.Status != models.SubmissionApplied {
		return models.SubmissionPatch{}, apperr.ErrAlreadySubmitted
	}
	link = strings.TrimSpace(link)
	fileURL = strings.TrimSpace(fileURL)
	if link == "" {
		link = sub.Link
	}
	if fileURL == "" {
		fileURL = sub.FileURL
	}
	if link == "" && fileURL == "" {
		return models.SubmissionPatch{}, apperr.Validation("a link or an uploaded file is required")
	}
	if outputs == nil {
		outputs = sub.CompletedOutputs
	}
	at := now.UTC()
	patch := models.SubmissionPatch{
		From:             statusPtr(sub.Status),
		Status:           statusPtr(models.SubmissionSubmitted),
		Link:             &link,
		FileURL:          &fileURL,
		CompletedOutputs: nonNil(outputs),
		SubmittedAt:      &at,
	}
	patch.Apply(sub)
	return patch, nil
}

// Review records a rating and feedback.
//
// A first review (from submitted) needs a comment of MinCommentLength runes.
// Editing an existing review may leave the comment empty, which keeps the
// previous one. Winner and rejected submissions keep their status and
// position; only submitted and reviewed ones end up reviewed.
func Review(sub *models.Submission, rating int, comment string) (models.SubmissionPatch, error) {
	if !sub.Status.IsActive() {
		return models.SubmissionPatch{}, apperr.Transition(string(sub.Status), string(models.SubmissionReviewed))
	}
	if rating < MinRating || rating > MaxRating {
		return models.SubmissionPatch{}, apperr.Validation("rating must be between %d and %d", MinRating, MaxRating)
	}
	comment = strings.TrimSpace(comment)
	firstReview := sub.Status == models.SubmissionSubmitted
	if firstReview || comment != "" {
		if utf8.RuneCountInString(comment) < MinCommentLength {
			return models.SubmissionPatch{}, apperr.Validation("comment must be at least %d characters", MinCommentLength)
		}
	}

	patch := models.SubmissionPatch{From: statusPtr(sub.Status), Rating: &rating}
	if comment != "" {
		patch.Feedback = &comment
	}
	switch sub.Status {
	case models.SubmissionSubmitted, models.SubmissionReviewed:
		patch.Status = statusPtr(models.SubmissionReviewed)
	}
	patch.Apply(sub)
	return patch, nil
}

// Reject marks a turned-in submission as explicitly not selected.
func Reject(sub *models.Submission) (models.SubmissionPatch, error) {
	switch sub.Status {
	case models.SubmissionSubmitted, models.SubmissionReviewed, models.SubmissionRejected:
	default:
		return models.SubmissionPatch{}, apperr.Transition(string(sub.Status), string(models.SubmissionRejected))
	}
	patch := models.SubmissionPatch{
		From:          statusPtr(sub.Status),
		Status:        statusPtr(models.SubmissionRejected),
		ClearPosition: true,
	}
	patch.Apply(sub)
	return patch, nil
}

// MarkWinner assigns a placement. It is only called while closing a challenge.
func MarkWinner(sub *models.Submission, place int) (models.SubmissionPatch, error) {
	if place < 1 || place > 3 {
		return models.SubmissionPatch{}, apperr.Validation("position %d out of range", place)
	}
	if !sub.Status.IsActive() {
		return models.SubmissionPatch{}, apperr.Transition(string(sub.Status), string(models.SubmissionWinner))
	}
	if sub.Status == models.SubmissionWinner && sub.Position != nil && *sub.Position != place {
		return models.SubmissionPatch{}, apperr.Transition("winner at another place", string(models.SubmissionWinner))
	}
	patch := models.SubmissionPatch{
		From:     statusPtr(sub.Status),
		Status:   statusPtr(models.SubmissionWinner),
		Position: &place,
	}
	patch.Apply(sub)
	return patch, nil
}

// Change builds the audit row for a transition, or false when the status
// did not move.
func Change(subID string, from, to models.SubmissionStatus, actor string, now time.Time) (models.StatusChange, bool) {
	if from == to {
		return models.StatusChange{}, false
	}
	return models.StatusChange{
		SubmissionID: subID,
		OldStatus:    from,
		NewStatus:    to,
		ChangedBy:    actor,
		CreatedAt:    now.UTC(),
	}, true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
