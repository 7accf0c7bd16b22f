package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Elizabethomito/talentbridge/backend/internal/anonymize"
	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/gate"
	"github.com/Elizabethomito/talentbridge/backend/internal/lifecycle"
	"github.com/Elizabethomito/talentbridge/backend/internal/middleware"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// ---- Student side ----

// ApplyToChallenge handles POST /api/challenges/{id}/apply  (student only)
//
// Applying twice returns the existing submission with 200 instead of 201.
func (s *Server) ApplyToChallenge(w http.ResponseWriter, r *http.Request) {
	sub, created, err := s.Store.Apply(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()), s.now())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond(w, status, sub)
}

// EditDraft handles PUT /api/challenges/{id}/submission  (student only)
func (s *Server) EditDraft(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sub, err := s.Store.SubmissionFor(r.Context(), r.PathValue("id"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	patch, err := lifecycle.EditDraft(&sub, req.Link, req.FileURL, req.CompletedOutputs)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := s.Store.SaveSubmission(r.Context(), sub.ID, patch, nil); err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, sub)
}

// SubmitSolution handles POST /api/challenges/{id}/submission/submit  (student only)
//
// After this the link, file and checklist are frozen.
func (s *Server) SubmitSolution(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	studentID := middleware.GetUserID(r.Context())
	c, err := s.Store.GetChallenge(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	sub, err := s.Store.SubmissionFor(r.Context(), c.ID, studentID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if sub.Status == models.SubmissionApplied {
		if c.Status != models.ChallengeOpen {
			respondErr(w, r, apperr.Precondition("challenge is %s", c.Status))
			return
		}
		if afterDeadline(c, s.now()) {
			respondErr(w, r, apperr.Precondition("deadline has passed"))
			return
		}
	}

	now := s.now()
	from := sub.Status
	patch, err := lifecycle.Submit(&sub, req.Link, req.FileURL, req.CompletedOutputs, now)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := s.save(r, sub, from, patch); err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, sub)
}

// MySubmissions handles GET /api/users/me/submissions  (student only)
func (s *Server) MySubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.Store.SubmissionsByStudent(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, subs)
}

// SetPublicOnProfile handles PUT /api/submissions/{id}/public  (student only)
func (s *Server) SetPublicOnProfile(w http.ResponseWriter, r *http.Request) {
	var req models.FlagRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sub, err := s.Store.GetSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if sub.StudentID != middleware.GetUserID(r.Context()) {
		respondErr(w, r, fmt.Errorf("submission %s: %w", sub.ID, apperr.ErrForbidden))
		return
	}
	patch := models.SubmissionPatch{IsPublic: &req.Value}
	if err := s.Store.UpdateSubmission(r.Context(), sub.ID, patch); err != nil {
		respondErr(w, r, err)
		return
	}
	patch.Apply(&sub)
	respond(w, http.StatusOK, sub)
}

// ---- Startup side ----

// ListChallengeSubmissions handles GET /api/challenges/{id}/submissions  (owner only)
//
// Students stay anonymous until the challenge is closed and content is
// withheld while the prize pool is unpaid. Submissions the caller hid are
// left out unless ?include_hidden=true.
func (s *Server) ListChallengeSubmissions(w http.ResponseWriter, r *http.Request) {
	c, err := s.ownedChallenge(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	subs, err := s.Store.FetchSubmissions(r.Context(), c.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	reveal := c.Status == models.ChallengeClosed || c.Status == models.ChallengeArchived
	view := anonymize.View(subs, reveal, gate.PaymentLocked(c))

	includeHidden, _ := strconv.ParseBool(r.URL.Query().Get("include_hidden"))
	if !includeHidden {
		hidden, err := s.Hidden.Lookup(r.Context(), middleware.GetUserID(r.Context()), c.ID)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		kept := view[:0]
		for _, v := range view {
			if !hidden[v.ID] {
				kept = append(kept, v)
			}
		}
		view = kept
	}
	respond(w, http.StatusOK, view)
}

// ReviewSubmission handles POST /api/submissions/{id}/review  (owner only)
func (s *Server) ReviewSubmission(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sub, c, err := s.ownedSubmission(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if c.Status != models.ChallengeOpen && c.Status != models.ChallengeClosed {
		respondErr(w, r, apperr.Precondition("challenge is %s", c.Status))
		return
	}

	from := sub.Status
	patch, err := lifecycle.Review(&sub, req.Rating, req.Comment)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := s.save(r, sub, from, patch); err != nil {
		respondErr(w, r, err)
		return
	}
	// The board only holds reviewed submissions, so rebuild it.
	s.Sessions.Reset(c.ID, middleware.GetUserID(r.Context()))
	respond(w, http.StatusOK, s.labelled(r, c, sub))
}

// RejectSubmission handles POST /api/submissions/{id}/reject  (owner only)
func (s *Server) RejectSubmission(w http.ResponseWriter, r *http.Request) {
	sub, c, err := s.ownedSubmission(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if c.Status != models.ChallengeOpen {
		respondErr(w, r, apperr.Precondition("challenge is %s", c.Status))
		return
	}
	from := sub.Status
	patch, err := lifecycle.Reject(&sub)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := s.save(r, sub, from, patch); err != nil {
		respondErr(w, r, err)
		return
	}
	s.Sessions.Reset(c.ID, middleware.GetUserID(r.Context()))
	respond(w, http.StatusOK, s.labelled(r, c, sub))
}

// SetFavorite handles PUT /api/submissions/{id}/favorite  (owner only)
func (s *Server) SetFavorite(w http.ResponseWriter, r *http.Request) {
	var req models.FlagRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	sub, c, err := s.ownedSubmission(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	patch := models.SubmissionPatch{IsFavorite: &req.Value}
	if err := s.Store.UpdateSubmission(r.Context(), sub.ID, patch); err != nil {
		respondErr(w, r, err)
		return
	}
	patch.Apply(&sub)
	respond(w, http.StatusOK, s.labelled(r, c, sub))
}

// SubmissionHistory handles GET /api/submissions/{id}/history  (owner only)
func (s *Server) SubmissionHistory(w http.ResponseWriter, r *http.Request) {
	sub, _, err := s.ownedSubmission(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	history, err := s.Store.History(r.Context(), sub.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, history)
}

// ownedSubmission loads the {id} submission and its challenge, checking the
// caller owns the challenge.
func (s *Server) ownedSubmission(r *http.Request) (models.Submission, models.Challenge, error) {
	sub, err := s.Store.GetSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		return models.Submission{}, models.Challenge{}, err
	}
	c, err := s.Store.GetChallenge(r.Context(), sub.ChallengeID)
	if err != nil {
		return models.Submission{}, models.Challenge{}, err
	}
	if c.StartupID != middleware.GetUserID(r.Context()) {
		return models.Submission{}, models.Challenge{}, fmt.Errorf("submission %s: %w", sub.ID, apperr.ErrForbidden)
	}
	return sub, c, nil
}

// save persists patch and, when the status moved, the audit row.
func (s *Server) save(r *http.Request, sub models.Submission, from models.SubmissionStatus, patch models.SubmissionPatch) error {
	var change *models.StatusChange
	if c, moved := lifecycle.Change(sub.ID, from, sub.Status, middleware.GetUserID(r.Context()), s.now()); moved {
		change = &c
	}
	return s.Store.SaveSubmission(r.Context(), sub.ID, patch, change)
}

// labelled returns the evaluator's view of one submission, with the same
// label it has in the challenge list.
func (s *Server) labelled(r *http.Request, c models.Challenge, sub models.Submission) anonymize.Submission {
	reveal := c.Status == models.ChallengeClosed || c.Status == models.ChallengeArchived
	one := anonymize.View([]models.Submission{sub}, reveal, gate.PaymentLocked(c))[0]
	if subs, err := s.Store.FetchSubmissions(r.Context(), c.ID); err == nil {
		if label, ok := anonymize.Labels(subs)[sub.ID]; ok {
			one.Label = label
		}
	}
	return one
}
