package handlers

import (
	"net/http"

	"github.com/Elizabethomito/talentbridge/backend/internal/middleware"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// GetHidden handles GET /api/challenges/{id}/hidden  (owner only)
func (s *Server) GetHidden(w http.ResponseWriter, r *http.Request) {
	c, err := s.ownedChallenge(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	ids, err := s.Hidden.Get(r.Context(), middleware.GetUserID(r.Context()), c.ID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, models.HiddenRequest{SubmissionIDs: ids})
}

// PutHidden handles PUT /api/challenges/{id}/hidden  (owner only)
//
// The body replaces the whole set. Ids that do not belong to the challenge
// are dropped.
func (s *Server) PutHidden(w http.ResponseWriter, r *http.Request) {
	var req models.HiddenRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
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
	known := make(map[string]bool, len(subs))
	for _, sub := range subs {
		known[sub.ID] = true
	}
	ids := make([]string, 0, len(req.SubmissionIDs))
	for _, id := range req.SubmissionIDs {
		if known[id] {
			ids = append(ids, id)
		}
	}

	saved, err := s.Hidden.Set(r.Context(), middleware.GetUserID(r.Context()), c.ID, ids)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, models.HiddenRequest{SubmissionIDs: saved})
}
