package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Elizabethomito/talentbridge/backend/internal/models"
)

func money(v int64) *int64 { return &v }

func TestCreateChallenge_StartsAsDraft(t *testing.T) {
	srv := newTestServer(t)
	startup := mustUser(t, srv, models.RoleStartup)

	rec := call(t, srv.CreateChallenge, http.MethodPost, "", startup, "startup", models.CreateChallengeRequest{
		Title:             "  Offline invoice app ",
		Deadline:          testNow.Add(48 * time.Hour),
		RewardFirstPlace:  money(5000),
		RewardSecondPlace: money(1000),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	c := decodeBody[models.Challenge](t, rec)
	assert.Equal(t, "Offline invoice app", c.Title)
	assert.Equal(t, models.ChallengeDraft, c.Status)
	assert.Equal(t, models.PaymentUnpaid, c.PaymentStatus)
	assert.Equal(t, 2, c.NumberOfWinners, "monetary places define the winner count")
	assert.Equal(t, startup, c.StartupID)
}

func TestCreateChallenge_NonMonetaryDefaultsToOneWinner(t *testing.T) {
	srv := newTestServer(t)
	startup := mustUser(t, srv, models.RoleStartup)

	rec := call(t, srv.CreateChallenge, http.MethodPost, "", startup, "startup", models.CreateChallengeRequest{
		Title:             "Solar brand identity",
		Deadline:          testNow.Add(48 * time.Hour),
		RewardDescription: "Internship interview",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decodeBody[models.Challenge](t, rec).NumberOfWinners)
}

func TestCreateChallenge_Validation(t *testing.T) {
	srv := newTestServer(t)
	startup := mustUser(t, srv, models.RoleStartup)
	zero := 0

	cases := map[string]models.CreateChallengeRequest{
		"missing title":    {Deadline: testNow.Add(time.Hour)},
		"past deadline":    {Title: "x", Deadline: testNow.Add(-time.Hour)},
		"negative reward":  {Title: "x", Deadline: testNow.Add(time.Hour), RewardThirdPlace: money(-1)},
		"too many winners": {Title: "x", Deadline: testNow.Add(time.Hour), NumberOfWinners: 4},
		"zero applicants":  {Title: "x", Deadline: testNow.Add(time.Hour), MaxApplicants: &zero},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			rec := call(t, srv.CreateChallenge, http.MethodPost, "", startup, "startup", req)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestPublishChallenge(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	other := mustUser(t, srv, models.RoleStartup)
	c := mustChallenge(t, srv, owner, func(c *models.Challenge) { c.Status = models.ChallengeDraft })

	rec := call(t, srv.PublishChallenge, http.MethodPost, c.ID, other, "startup", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, srv.PublishChallenge, http.MethodPost, c.ID, owner, "startup", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, models.ChallengeOpen, decodeBody[models.Challenge](t, rec).Status)

	rec = call(t, srv.PublishChallenge, http.MethodPost, c.ID, owner, "startup", nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "publishing twice is an invalid transition")
}

func TestGetChallenge_DraftOnlyForOwner(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	c := mustChallenge(t, srv, owner, func(c *models.Challenge) { c.Status = models.ChallengeDraft })

	rec := call(t, srv.GetChallenge, http.MethodGet, c.ID, "", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, srv.GetChallenge, http.MethodGet, c.ID, owner, "startup", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, srv.GetChallenge, http.MethodGet, "missing", "", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListChallenges_HidesDraftsAndSearches(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	mustChallenge(t, srv, owner, func(c *models.Challenge) { c.Title = "Water point mapping" })
	mustChallenge(t, srv, owner, func(c *models.Challenge) { c.Title = "Offline invoice app" })
	mustChallenge(t, srv, owner, func(c *models.Challenge) {
		c.Title = "Invoice reminders draft"
		c.Status = models.ChallengeDraft
	})

	list := func(query string) []models.Challenge {
		req := httptest.NewRequest(http.MethodGet, "/api/challenges"+query, nil)
		rec := httptest.NewRecorder()
		srv.ListChallenges(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decodeBody[[]models.Challenge](t, rec)
	}

	assert.Len(t, list(""), 2)

	found := list("?q=invce")
	require.Len(t, found, 1)
	assert.Equal(t, "Offline invoice app", found[0].Title)

	assert.Empty(t, list("?status=closed"))

	req := httptest.NewRequest(http.MethodGet, "/api/challenges?status=draft", nil)
	rec := httptest.NewRecorder()
	srv.ListChallenges(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMyChallenges_IncludesDrafts(t *testing.T) {
	srv := newTestServer(t)
	owner := mustUser(t, srv, models.RoleStartup)
	mustChallenge(t, srv, owner, nil)
	mustChallenge(t, srv, owner, func(c *models.Challenge) { c.Status = models.ChallengeDraft })
	mustChallenge(t, srv, mustUser(t, srv, models.RoleStartup), nil)

	rec := call(t, srv.MyChallenges, http.MethodGet, "", owner, "startup", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]models.Challenge](t, rec), 2)
}
