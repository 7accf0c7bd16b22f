// Package handlers contains the HTTP handler logic for the TalentBridge API.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: package structure
// ────────────────────────────────────────────────────────────────────
// All handler files share the same "handlers" package so they can call
// each other's helpers freely without exporting them. The files are
// split by domain (auth, challenges, submissions, evaluation, payment)
// purely for readability.
//
// The central type is Server. It holds what every handler needs: the
// store, the JWT secret, the evaluator boards and the closure
// orchestrator. Putting shared dependencies on a struct (instead of
// global variables) makes the code easier to test: each test creates
// its own Server with its own in-memory database.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/apperr"
	"github.com/Elizabethomito/talentbridge/backend/internal/closure"
	"github.com/Elizabethomito/talentbridge/backend/internal/localcache"
	"github.com/Elizabethomito/talentbridge/backend/internal/payment"
	"github.com/Elizabethomito/talentbridge/backend/internal/placement"
	"github.com/Elizabethomito/talentbridge/backend/internal/store"
)

// respond writes v as JSON with the given HTTP status code.
// Setting Content-Type before WriteHeader is important: once
// WriteHeader is called the headers are flushed and cannot be changed.
func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignoring the encode error: if the client disconnected mid-write
	// there is nothing useful we can do.
	_ = json.NewEncoder(w).Encode(body)
}

// respondError is a convenience wrapper that sends a JSON object with
// a single "error" key, e.g. {"error": "challenge not found"}.
func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, map[string]string{"error": msg})
}

// respondErr maps a domain error to its status code. A failed closure also
// returns the per-submission detail so it can be reconciled.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)

	var pw *apperr.PartialWriteError
	if errors.As(err, &pw) {
		respond(w, status, map[string]any{"error": err.Error(), "detail": pw})
		return
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	respondError(w, status, err.Error())
}

// decode reads and parses a JSON request body into v.
func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// Server holds shared dependencies for all handlers.
type Server struct {
	Store *store.Store
	// Secret is the HMAC key used to sign and verify JWTs.
	Secret   string
	Sessions *placement.Sessions
	Closure  *closure.Orchestrator
	Payments payment.Provider
	Hidden   *localcache.HiddenSet
	// Now is the clock used for deadlines; tests replace it.
	Now func() time.Time
}

// NewServer wires the default collaborators around st. cache backs the
// evaluators' hidden-submission sets.
func NewServer(st *store.Store, secret string, cache localcache.Storage) *Server {
	payments := payment.StoreProvider{Repo: st}
	srv := &Server{
		Store:    st,
		Secret:   secret,
		Sessions: placement.NewSessions(),
		Payments: payments,
		Hidden:   localcache.NewHiddenSet(cache),
		Now:      time.Now,
	}
	srv.Closure = closure.New(closure.SQLRepository{Store: st}, payments).WithClock(srv.now)
	return srv
}

func (s *Server) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}
