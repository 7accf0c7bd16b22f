package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/gate"
	"github.com/Elizabethomito/talentbridge/backend/internal/middleware"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"github.com/Elizabethomito/talentbridge/backend/internal/store"
	"github.com/google/uuid"
)

// CreateChallenge handles POST /api/challenges  (startup only)
//
// The challenge starts as a draft. Exactly one reward scheme applies: any
// reward_*_place makes the places fixed, otherwise number_of_winners
// generic places are awarded.
func (s *Server) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	var req models.CreateChallengeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	c, err := s.newChallenge(middleware.GetUserID(r.Context()), req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := s.Store.CreateChallenge(r.Context(), c); err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusCreated, c)
}

func (s *Server) newChallenge(startupID string, req models.CreateChallengeRequest) (models.Challenge, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return models.Challenge{}, apperr.Validation("title is required")
	}
	if !req.Deadline.After(s.now()) {
		return models.Challenge{}, apperr.Validation("deadline must be in the future")
	}
	for i, r := range []*int64{req.RewardFirstPlace, req.RewardSecondPlace, req.RewardThirdPlace} {
		if r != nil && *r < 0 {
			return models.Challenge{}, apperr.Validation("reward for place %d is negative", i+1)
		}
	}
	if req.MaxApplicants != nil && *req.MaxApplicants < 1 {
		return models.Challenge{}, apperr.Validation("max_applicants must be at least 1")
	}

	now := s.now().UTC()
	c := models.Challenge{
		ID:                uuid.NewString(),
		StartupID:         startupID,
		Title:             req.Title,
		Description:       strings.TrimSpace(req.Description),
		Status:            models.ChallengeDraft,
		Deadline:          req.Deadline.UTC(),
		RewardFirstPlace:  req.RewardFirstPlace,
		RewardSecondPlace: req.RewardSecondPlace,
		RewardThirdPlace:  req.RewardThirdPlace,
		RewardDescription: strings.TrimSpace(req.RewardDescription),
		NumberOfWinners:   req.NumberOfWinners,
		MaxApplicants:     req.MaxApplicants,
		PaymentStatus:     models.PaymentUnpaid,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if !gate.HasMonetaryReward(c) {
		if c.NumberOfWinners == 0 {
			c.NumberOfWinners = 1
		}
		if c.NumberOfWinners < 1 || c.NumberOfWinners > gate.MaxSlots {
			return models.Challenge{}, apperr.Validation("number_of_winners must be between 1 and %d", gate.MaxSlots)
		}
	} else if c.NumberOfWinners == 0 {
		c.NumberOfWinners = len(gate.WinnerSlots(c))
	}
	return c, nil
}

// PublishChallenge handles POST /api/challenges/{id}/publish  (owner only)
func (s *Server) PublishChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.ownedChallenge(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if !c.Deadline.After(s.now()) {
		respondErr(w, r, apperr.Precondition("deadline has already passed"))
		return
	}
	if err := s.Store.TransitionChallenge(r.Context(), c.ID, models.ChallengeDraft, models.ChallengeOpen); err != nil {
		respondErr(w, r, err)
		return
	}
	c.Status = models.ChallengeOpen
	respond(w, http.StatusOK, c)
}

// ListChallenges handles GET /api/challenges
//
// ?status= filters by status (drafts are never listed). ?q= ranks the
// results by fuzzy title match, closest first.
func (s *Server) ListChallenges(w http.ResponseWriter, r *http.Request) {
	status := models.ChallengeStatus(r.URL.Query().Get("status"))
	if status != "" {
		parsed, err := store.ParseChallengeStatus(string(status))
		if err != nil || parsed == models.ChallengeDraft {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", status))
			return
		}
	}

	challenges, err := s.Store.ListChallenges(r.Context(), status)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		challenges = searchChallenges(q, challenges)
	}
	respond(w, http.StatusOK, challenges)
}

// searchChallenges keeps the challenges whose title fuzzily contains q,
// ordered by match distance; equal distances keep deadline order.
func searchChallenges(q string, challenges []models.Challenge) []models.Challenge {
	titles := make([]string, len(challenges))
	for i, c := range challenges {
		titles[i] = c.Title
	}
	ranks := fuzzy.RankFindNormalizedFold(q, titles)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]models.Challenge, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, challenges[rank.OriginalIndex])
	}
	return out
}

// GetChallenge handles GET /api/challenges/{id}
//
// Drafts are only visible to their owner.
func (s *Server) GetChallenge(w http.ResponseWriter, r *http.Request) {
	c, err := s.Store.GetChallenge(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if c.Status == models.ChallengeDraft && c.StartupID != middleware.GetUserID(r.Context()) {
		respondError(w, http.StatusNotFound, "challenge not found")
		return
	}
	respond(w, http.StatusOK, c)
}

// MyChallenges handles GET /api/users/me/challenges  (startup only)
func (s *Server) MyChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := s.Store.ChallengesByStartup(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, challenges)
}

// ownedChallenge loads the {id} challenge and checks the caller owns it.
func (s *Server) ownedChallenge(r *http.Request) (models.Challenge, error) {
	c, err := s.Store.GetChallenge(r.Context(), r.PathValue("id"))
	if err != nil {
		return models.Challenge{}, err
	}
	if c.StartupID != middleware.GetUserID(r.Context()) {
		return models.Challenge{}, fmt.Errorf("challenge %s belongs to another startup: %w", c.ID, apperr.ErrForbidden)
	}
	return c, nil
}

// afterDeadline reports whether now is past the challenge deadline.
func afterDeadline(c models.Challenge, now time.Time) bool {
	return now.After(c.Deadline)
}
