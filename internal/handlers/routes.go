package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Elizabethomito/talentbridge/backend/internal/middleware"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

// RouteOptions configures Routes.
type RouteOptions struct {
	// Limiter, when set, throttles mutating requests per user.
	Limiter *middleware.RateLimiter
	// Logger, when set, logs every request.
	Logger *slog.Logger
	// EnableSeed registers POST /api/admin/seed.
	EnableSeed bool
}

// Routes registers every endpoint on a new ServeMux and wraps it in the
// shared middleware.
//
// Go 1.22+ ServeMux supports method prefixes ("GET /path") and path
// wildcards ("{id}") natively, no third-party router needed.
func (s *Server) Routes(opts RouteOptions) http.Handler {
	mux := http.NewServeMux()

	// Chaining: auth(onlyStartup(handler)) means
	//   1. Authenticate runs first  → sets user_id/role in context
	//   2. RequireRole runs second  → allows or rejects based on role
	//   3. handler runs last        → does the actual work
	authenticate := middleware.Authenticate(s.Secret)
	limit := func(h http.Handler) http.Handler { return h }
	if opts.Limiter != nil {
		limit = opts.Limiter.Limit
	}
	auth := func(h http.Handler) http.Handler { return authenticate(limit(h)) }
	onlyStartup := middleware.RequireRole(models.RoleStartup)
	onlyStudent := middleware.RequireRole(models.RoleStudent)

	// Public routes: no token required.
	mux.Handle("POST /api/auth/register", limit(http.HandlerFunc(s.Register)))
	mux.Handle("POST /api/auth/login", limit(http.HandlerFunc(s.Login)))
	mux.HandleFunc("GET /api/challenges", s.ListChallenges)
	// A token is optional here; it lets owners see their own drafts.
	mux.Handle("GET /api/challenges/{id}", middleware.OptionalAuthenticate(s.Secret)(http.HandlerFunc(s.GetChallenge)))
	// Called by the checkout provider; the body carries a signed token.
	mux.Handle("POST /api/payments/checkout/confirm", limit(http.HandlerFunc(s.ConfirmCheckout)))
	if opts.EnableSeed {
		mux.HandleFunc("POST /api/admin/seed", s.SeedDemo)
	}

	// Authenticated: any logged-in user.
	mux.Handle("GET /api/auth/me", auth(http.HandlerFunc(s.Me)))
	mux.Handle("GET /api/challenges/{id}/results", auth(http.HandlerFunc(s.ChallengeResults)))

	// Startup-only routes.
	startup := func(h http.HandlerFunc) http.Handler { return auth(onlyStartup(h)) }
	mux.Handle("POST /api/challenges", startup(s.CreateChallenge))
	mux.Handle("GET /api/users/me/challenges", startup(s.MyChallenges))
	mux.Handle("POST /api/challenges/{id}/publish", startup(s.PublishChallenge))
	mux.Handle("GET /api/challenges/{id}/evaluation", startup(s.EvaluationStatus))
	mux.Handle("GET /api/challenges/{id}/payment", startup(s.PaymentStatus))
	mux.Handle("GET /api/challenges/{id}/submissions", startup(s.ListChallengeSubmissions))
	mux.Handle("GET /api/challenges/{id}/hidden", startup(s.GetHidden))
	mux.Handle("PUT /api/challenges/{id}/hidden", startup(s.PutHidden))
	mux.Handle("GET /api/challenges/{id}/board", startup(s.GetBoard))
	mux.Handle("POST /api/challenges/{id}/board/move", startup(s.MoveOnBoard))
	mux.Handle("POST /api/challenges/{id}/board/reorder", startup(s.ReorderBoard))
	mux.Handle("DELETE /api/challenges/{id}/board", startup(s.ResetBoard))
	mux.Handle("POST /api/challenges/{id}/finalize", startup(s.FinalizeChallenge))
	mux.Handle("POST /api/submissions/{id}/review", startup(s.ReviewSubmission))
	mux.Handle("POST /api/submissions/{id}/reject", startup(s.RejectSubmission))
	mux.Handle("PUT /api/submissions/{id}/favorite", startup(s.SetFavorite))
	mux.Handle("GET /api/submissions/{id}/history", startup(s.SubmissionHistory))

	// Student-only routes.
	student := func(h http.HandlerFunc) http.Handler { return auth(onlyStudent(h)) }
	mux.Handle("POST /api/challenges/{id}/apply", student(s.ApplyToChallenge))
	mux.Handle("PUT /api/challenges/{id}/submission", student(s.EditDraft))
	mux.Handle("POST /api/challenges/{id}/submission/submit", student(s.SubmitSolution))
	mux.Handle("GET /api/users/me/submissions", student(s.MySubmissions))
	mux.Handle("PUT /api/submissions/{id}/public", student(s.SetPublicOnProfile))

	// Wrap the entire mux in CORS so browser requests are allowed.
	var handler http.Handler = middleware.CORS(mux)
	if opts.Logger != nil {
		handler = middleware.RequestLogger(opts.Logger)(handler)
	}
	return handler
}
