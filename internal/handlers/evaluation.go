package handlers

import (
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/Elizabethomito/talentbridge/backend/internal/anonymize"
	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/closure"
	"github.com/Elizabethomito/talentbridge/backend/internal/gate"
	"github.com/Elizabethomito/talentbridge/backend/internal/middleware"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"github.com/Elizabethomito/talentbridge/backend/internal/placement"
)

// EvaluationStatus handles GET /api/challenges/{id}/evaluation  (owner only)
//
// It reports the finalize gate, the payment lock and the winner slots so the
// client knows whether to show rating, ranking or a checkout prompt.
func (s *Server) EvaluationStatus(w http.ResponseWriter, r *http.Request) {
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
	respond(w, http.StatusOK, gate.Evaluate(c, subs, s.now()))
}

// board returns the caller's ranking board for an open challenge they own,
// building it from the reviewed submissions on first use.
func (s *Server) board(r *http.Request) (*placement.Board, error) {
	c, err := s.ownedChallenge(r)
	if err != nil {
		return nil, err
	}
	if c.Status != models.ChallengeOpen {
		return nil, apperr.Precondition("challenge is %s", c.Status)
	}
	userID := middleware.GetUserID(r.Context())
	if b, ok := s.Sessions.Peek(c.ID, userID); ok {
		return b, nil
	}
	subs, err := s.Store.FetchSubmissions(r.Context(), c.ID)
	if err != nil {
		return nil, err
	}
	return s.Sessions.Get(c.ID, userID, func() *placement.Board {
		return placement.NewBoard(gate.WinnerSlots(c), subs, anonymize.Labels(subs))
	}), nil
}

// GetBoard handles GET /api/challenges/{id}/board  (owner only)
func (s *Server) GetBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.board(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, b.View())
}

// MoveOnBoard handles POST /api/challenges/{id}/board/move  (owner only)
//
// slot 0 sends the submission back to the shortlist. Moving into an occupied
// slot returns the previous occupant to the shortlist.
func (s *Server) MoveOnBoard(w http.ResponseWriter, r *http.Request) {
	var req models.MoveRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	b, err := s.board(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if req.Slot == 0 {
		err = b.MoveToShortlist(req.SubmissionID)
	} else {
		err = b.MoveToSlot(req.SubmissionID, req.Slot)
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, b.View())
}

// ReorderBoard handles POST /api/challenges/{id}/board/reorder  (owner only)
func (s *Server) ReorderBoard(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	b, err := s.board(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := b.ReorderWithinShortlist(req.SubmissionID, req.Index); err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, b.View())
}

// ResetBoard handles DELETE /api/challenges/{id}/board  (owner only)
func (s *Server) ResetBoard(w http.ResponseWriter, r *http.Request) {
	c, err := s.ownedChallenge(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	s.Sessions.Reset(c.ID, middleware.GetUserID(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// FinalizeChallenge handles POST /api/challenges/{id}/finalize  (owner only)
//
// The body may carry explicit placements; without them the caller's board
// is used and must have every slot filled.
func (s *Server) FinalizeChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.FinalizeRequest
	if err := decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	challengeID := r.PathValue("id")
	userID := middleware.GetUserID(r.Context())

	placements := req.Placements
	if len(placements) == 0 {
		b, ok := s.Sessions.Peek(challengeID, userID)
		if !ok {
			respondErr(w, r, apperr.Precondition("no placements given and no board in progress"))
			return
		}
		var err error
		if placements, err = b.Placements(); err != nil {
			respondErr(w, r, err)
			return
		}
	}

	res, err := s.Closure.FinalizeChallenge(r.Context(), challengeID, userID, placements)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	s.Sessions.DropChallenge(challengeID)
	respond(w, http.StatusOK, res)
}

// ResultEntry is one submission on the public results page.
type ResultEntry struct {
	SubmissionID string                  `json:"submission_id"`
	Label        string                  `json:"label"`
	StudentID    string                  `json:"student_id"`
	Status       models.SubmissionStatus `json:"status"`
	Position     *int                    `json:"position"`
}

// Results is the body of GET /api/challenges/{id}/results.
type Results struct {
	Challenge   models.Challenge `json:"challenge"`
	Winners     []closure.Winner `json:"winners"`
	Submissions []ResultEntry    `json:"submissions"`
}

// ChallengeResults handles GET /api/challenges/{id}/results  (authenticated)
//
// Only closed challenges have results; identities are revealed here.
func (s *Server) ChallengeResults(w http.ResponseWriter, r *http.Request) {
	c, err := s.Store.GetChallenge(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if c.Status != models.ChallengeClosed && c.Status != models.ChallengeArchived {
		respondErr(w, r, apperr.Precondition("challenge is %s, results are published once it closes", c.Status))
		return
	}
	subs, err := s.Store.FetchSubmissions(r.Context(), c.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, buildResults(c, subs))
}

func buildResults(c models.Challenge, subs []models.Submission) Results {
	res := Results{Challenge: c, Winners: []closure.Winner{}, Submissions: []ResultEntry{}}
	rewards := c.Rewards()
	for _, v := range anonymize.View(subs, true, true) {
		if !v.Status.IsActive() {
			continue
		}
		res.Submissions = append(res.Submissions, ResultEntry{
			SubmissionID: v.ID,
			Label:        v.Label,
			StudentID:    v.StudentID,
			Status:       v.Status,
			Position:     v.Position,
		})
		if v.Status == models.SubmissionWinner && v.Position != nil {
			win := closure.Winner{Place: *v.Position, SubmissionID: v.ID, Label: v.Label, StudentID: v.StudentID}
			if gate.HasMonetaryReward(c) && *v.Position >= 1 && *v.Position <= gate.MaxSlots {
				win.Reward = rewards[*v.Position-1]
			}
			res.Winners = append(res.Winners, win)
		}
	}
	sort.Slice(res.Winners, func(i, j int) bool { return res.Winners[i].Place < res.Winners[j].Place })
	return res
}
