package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// mustUser inserts an account directly through the store.
func mustUser(t *testing.T, srv *Server, role models.UserRole) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, srv.Store.CreateUser(context.Background(), models.User{
		ID: id, Email: id + "@test.dev", PasswordHash: "x", Name: string(role), Role: role,
		CreatedAt: testNow, UpdatedAt: testNow,
	}))
	return id
}

// mustChallenge inserts an open, paid challenge with a 1000 first prize and
// a deadline one day after testNow.
func mustChallenge(t *testing.T, srv *Server, owner string, mutate func(*models.Challenge)) models.Challenge {
	t.Helper()
	first := int64(1000)
	c := models.Challenge{
		ID: uuid.NewString(), StartupID: owner, Title: "Offline invoice app",
		Status: models.ChallengeOpen, Deadline: testNow.Add(24 * time.Hour),
		RewardFirstPlace: &first, NumberOfWinners: 1,
		PrizePoolPaid: true, PaymentStatus: models.PaymentFullyPaid,
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	if mutate != nil {
		mutate(&c)
	}
	require.NoError(t, srv.Store.CreateChallenge(context.Background(), c))
	return c
}

// mustSubmission applies a new student to c and moves the row to status.
func mustSubmission(t *testing.T, srv *Server, c models.Challenge, status models.SubmissionStatus, rating int) models.Submission {
	t.Helper()
	ctx := context.Background()
	student := mustUser(t, srv, models.RoleStudent)
	sub, _, err := srv.Store.Apply(ctx, c.ID, student, srv.now())
	require.NoError(t, err)

	if status != models.SubmissionApplied {
		link := "https://git.example/" + student
		patch := models.SubmissionPatch{Status: &status, Link: &link}
		if rating > 0 {
			comment := "Reviewed in a seeded test."
			patch.Rating = &rating
			patch.Feedback = &comment
		}
		require.NoError(t, srv.Store.UpdateSubmission(ctx, sub.ID, patch))
	}
	sub, err = srv.Store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	return sub
}

// call runs handler h like the router would: path value "id", an
// authenticated user and an optional JSON body.
func call(t *testing.T, h http.HandlerFunc, method, id, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, "/", reader)
	if id != "" {
		req.SetPathValue("id", id)
	}
	if userID != "" {
		req = ctxWithUser(req, userID, role)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// decodeBody decodes the recorder body into T.
func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

// closeChallenge moves an open challenge to closed without picking winners.
func closeChallenge(t *testing.T, srv *Server, c models.Challenge) {
	t.Helper()
	require.NoError(t, srv.Store.TransitionChallenge(context.Background(), c.ID, models.ChallengeOpen, models.ChallengeClosed))
}
