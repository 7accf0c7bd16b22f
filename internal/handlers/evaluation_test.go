package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elizabethomito/talentbridge/backend/internal/closure"
	"github.com/Elizabethomito/talentbridge/backend/internal/gate"
	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"github.com/Elizabethomito/talentbridge/backend/internal/placement"
)

// pastDeadline moves the server clock beyond c's deadline.
func pastDeadline(srv *Server, c models.Challenge) {
	srv.Now = func() time.Time { return c.Deadline.Add(time.Hour) }
}

func TestEvaluationStatus(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	c := mustChallenge(t, srv, owner, nil)
	mustSubmission(t, srv, c, models.SubmissionReviewed, 8)
	pending := mustSubmission(t, srv, c, models.SubmissionSubmitted, 0)

	rec := call(t, srv.EvaluationStatus, http.MethodGet, c.ID, owner, "startup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decodeBody[gate.Status](t, rec)
	assert.False(t, st.CanProceed)
	assert.Equal(t, gate.ReasonDeadline, st.Reason)

	pastDeadline(srv, c)
	rec = call(t, srv.EvaluationStatus, http.MethodGet, c.ID, owner, "startup", nil)
	st = decodeBody[gate.Status](t, rec)
	assert.Equal(t, gate.ReasonPendingReviews, st.Reason)
	assert.Equal(t, 2, st.Active)
	assert.Equal(t, 1, st.Rated)

	rec = call(t, srv.ReviewSubmission, http.MethodPost, pending.ID, owner, "startup", models.ReviewRequest{Rating: 6, Comment: "Solid but incomplete"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, srv.EvaluationStatus, http.MethodGet, c.ID, owner, "startup", nil)
	st = decodeBody[gate.Status](t, rec)
	assert.True(t, st.Allowed)
	assert.True(t, st.CanProceed)
	assert.Equal(t, []int{1}, st.Slots)
}

func TestBoard_MoveAndReorder(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	c := mustChallenge(t, srv, owner, func(c *models.Challenge) {
		c.RewardFirstPlace = nil
		c.NumberOfWinners = 2
	})
	low := mustSubmission(t, srv, c, models.SubmissionReviewed, 5)
	high := mustSubmission(t, srv, c, models.SubmissionReviewed, 9)
	mustSubmission(t, srv, c, models.SubmissionSubmitted, 0)

	rec := call(t, srv.GetBoard, http.MethodGet, c.ID, owner, "startup", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeBody[placement.View](t, rec)
	require.Len(t, view.Shortlist, 2, "only reviewed submissions are ranked")
	assert.Equal(t, high.ID, view.Shortlist[0].ID, "shortlist starts by rating")
	assert.Len(t, view.Slots, 2)

	rec = call(t, srv.ReorderBoard, http.MethodPost, c.ID, owner, "startup", models.ReorderRequest{SubmissionID: low.ID, Index: 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, low.ID, decodeBody[placement.View](t, rec).Shortlist[0].ID)

	call(t, srv.MoveOnBoard, http.MethodPost, c.ID, owner, "startup", models.MoveRequest{SubmissionID: low.ID, Slot: 1})
	rec = call(t, srv.MoveOnBoard, http.MethodPost, c.ID, owner, "startup", models.MoveRequest{SubmissionID: high.ID, Slot: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view = decodeBody[placement.View](t, rec)
	require.NotNil(t, view.Slots[0].Entry)
	assert.Equal(t, high.ID, view.Slots[0].Entry.ID)
	require.Len(t, view.Shortlist, 1, "the displaced entry returns to the shortlist")
	assert.Equal(t, low.ID, view.Shortlist[0].ID)

	rec = call(t, srv.MoveOnBoard, http.MethodPost, c.ID, owner, "startup", models.MoveRequest{SubmissionID: high.ID, Slot: 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "slot 3 is not offered")

	rec = call(t, srv.MoveOnBoard, http.MethodPost, c.ID, owner, "startup", models.MoveRequest{SubmissionID: high.ID, Slot: 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[placement.View](t, rec).Shortlist, 2)

	rec = call(t, srv.ResetBoard, http.MethodDelete, c.ID, owner, "startup", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBoard_OtherStartupForbidden(t *testing.T) {
	srv := newTestServer(t)
	c := mustChallenge(t, srv, mustUser(t, srv, models.RoleStartup), nil)

	rec := call(t, srv.GetBoard, http.MethodGet, c.ID, mustUser(t, srv, models.RoleStartup), "startup", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFinalizeChallenge_FromBoard(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	c := mustChallenge(t, srv, owner, nil)
	winner := mustSubmission(t, srv, c, models.SubmissionReviewed, 9)
	other := mustSubmission(t, srv, c, models.SubmissionReviewed, 6)

	rec := call(t, srv.FinalizeChallenge, http.MethodPost, c.ID, owner, "startup", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, "no board and no placements")

	call(t, srv.MoveOnBoard, http.MethodPost, c.ID, owner, "startup", models.MoveRequest{SubmissionID: winner.ID, Slot: 1})

	rec = call(t, srv.FinalizeChallenge, http.MethodPost, c.ID, owner, "startup", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, "deadline not reached")

	pastDeadline(srv, c)
	rec = call(t, srv.FinalizeChallenge, http.MethodPost, c.ID, owner, "startup", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[closure.Result](t, rec)
	require.Len(t, res.Winners, 1)
	assert.Equal(t, winner.ID, res.Winners[0].SubmissionID)
	assert.Equal(t, winner.StudentID, res.Winners[0].StudentID)
	require.NotNil(t, res.Winners[0].Reward)
	assert.Equal(t, int64(1000), *res.Winners[0].Reward)

	_, ok := srv.Sessions.Peek(c.ID, owner)
	assert.False(t, ok, "boards are dropped once the challenge closes")

	ctx := context.Background()
	closed, err := srv.Store.GetChallenge(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeClosed, closed.Status)
	got, err := srv.Store.GetSubmission(ctx, winner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionWinner, got.Status)
	require.NotNil(t, got.Position)
	assert.Equal(t, 1, *got.Position)
	got, err = srv.Store.GetSubmission(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionReviewed, got.Status)

	rec = call(t, srv.FinalizeChallenge, http.MethodPost, c.ID, owner, "startup",
		models.FinalizeRequest{Placements: map[int]string{1: winner.ID}})
	assert.Equal(t, http.StatusConflict, rec.Code, "a closed challenge cannot be finalized again")
}

func TestFinalizeChallenge_ExplicitPlacements(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	c := mustChallenge(t, srv, owner, func(c *models.Challenge) { c.RewardSecondPlace = money(500) })
	first := mustSubmission(t, srv, c, models.SubmissionReviewed, 9)
	second := mustSubmission(t, srv, c, models.SubmissionReviewed, 7)
	pastDeadline(srv, c)

	rec := call(t, srv.FinalizeChallenge, http.MethodPost, c.ID, owner, "startup",
		models.FinalizeRequest{Placements: map[int]string{1: first.ID}})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, "second place left empty")

	rec = call(t, srv.FinalizeChallenge, http.MethodPost, c.ID, mustUser(t, srv, models.RoleStartup), "startup",
		models.FinalizeRequest{Placements: map[int]string{1: first.ID, 2: second.ID}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, srv.FinalizeChallenge, http.MethodPost, c.ID, owner, "startup",
		models.FinalizeRequest{Placements: map[int]string{1: first.ID, 2: second.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, decodeBody[closure.Result](t, rec).Winners, 2)
}

func TestFinalizeChallenge_PaymentLocked(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	c := mustChallenge(t, srv, owner, func(c *models.Challenge) {
		c.PrizePoolPaid = false
		c.PaymentStatus = models.PaymentUnpaid
	})
	sub := mustSubmission(t, srv, c, models.SubmissionReviewed, 9)
	pastDeadline(srv, c)

	placements := models.FinalizeRequest{Placements: map[int]string{1: sub.ID}}
	rec := call(t, srv.FinalizeChallenge, http.MethodPost, c.ID, owner, "startup", placements)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, rec.Body.String())

	rec = call(t, srv.EvaluationStatus, http.MethodGet, c.ID, owner, "startup", nil)
	st := decodeBody[gate.Status](t, rec)
	assert.True(t, st.Allowed)
	assert.True(t, st.Locked)
	assert.False(t, st.CanProceed)
}

func TestChallengeResults(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	c := mustChallenge(t, srv, owner, nil)
	winner := mustSubmission(t, srv, c, models.SubmissionReviewed, 9)
	mustSubmission(t, srv, c, models.SubmissionApplied, 0)
	viewer := mustUser(t, srv, models.RoleStudent)

	rec := call(t, srv.ChallengeResults, http.MethodGet, c.ID, viewer, "student", nil)
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code, "no results while open")

	pastDeadline(srv, c)
	rec = call(t, srv.FinalizeChallenge, http.MethodPost, c.ID, owner, "startup",
		models.FinalizeRequest{Placements: map[int]string{1: winner.ID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, srv.ChallengeResults, http.MethodGet, c.ID, viewer, "student", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decodeBody[Results](t, rec)
	assert.Equal(t, models.ChallengeClosed, res.Challenge.Status)
	require.Len(t, res.Winners, 1)
	assert.Equal(t, winner.StudentID, res.Winners[0].StudentID)
	assert.Equal(t, "Submission #1", res.Winners[0].Label)
	assert.Len(t, res.Submissions, 1, "applied-only rows are not listed")
}
