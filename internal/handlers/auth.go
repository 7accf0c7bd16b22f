package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/auth"
	"github.com/Elizabethomito/talentbridge/backend/internal/middleware"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// minPasswordLength is counted in runes.
const minPasswordLength = 8

// dummyHash is compared against when the email is unknown so a failed login
// takes as long as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("talentbridge-no-such-user"), bcrypt.DefaultCost)

// normalizeEmail lower-cases the address and rejects anything net/mail
// cannot parse or that carries a display name.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperr.Validation("email %q is not a valid address", raw)
	}
	return email, nil
}

// newAccount validates a registration and builds the user row.
func (s *Server) newAccount(req models.RegisterRequest) (models.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return models.User{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.User{}, apperr.Validation("name is required")
	}
	if !req.Role.Valid() {
		return models.User{}, apperr.Validation("role must be student, startup or professor")
	}
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		return models.User{}, apperr.Validation("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	now := s.now().UTC()
	return models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         req.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// session signs a token for user and writes the login response.
func (s *Server) session(w http.ResponseWriter, r *http.Request, status int, user models.User) {
	token, err := auth.GenerateToken(user.ID, string(user.Role), s.Secret)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, status, models.LoginResponse{Token: token, User: user})
}

// Register handles POST /api/auth/register
//
// Students apply to challenges, startups post and judge them, professors
// have read access to results. The response already carries a session.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	user, err := s.newAccount(req)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := s.Store.CreateUser(r.Context(), user); err != nil {
		respondErr(w, r, err)
		return
	}
	s.session(w, r, http.StatusCreated, user)
}

// Login handles POST /api/auth/login
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hash := dummyHash
	user, err := s.Store.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	switch {
	case err == nil:
		hash = []byte(user.PasswordHash)
	case !errors.Is(err, apperr.ErrNotFound):
		respondErr(w, r, err)
		return
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil || err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.session(w, r, http.StatusOK, user)
}

// Me handles GET /api/auth/me
func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	user, err := s.Store.User(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, user)
}
