package handlers

// SeedDemo handles POST /api/admin/seed
//
// This endpoint is ONLY for demos and is registered only when ENABLE_SEED is
// set. It inserts a fixed set of accounts, challenges and submissions so a
// demo can start from a known state.
//
// The endpoint is idempotent: every INSERT uses INSERT OR IGNORE and the ids
// are hard-coded, so the same rows are produced every time.
//
// DEMO SCENARIO
// ─────────────────────────────────────────────────────────────────────────
// Startup  : "Kijani Labs"     (team@kijani.test  / demo1234)
// Students : "Amara Osei"      (amara@student.test  / demo1234)
//            "Baraka Mwangi"   (baraka@student.test / demo1234)
//            "Chiku Njeri"     (chiku@student.test  / demo1234)
//
// Challenges (all owned by Kijani Labs):
//  1. Offline invoice app        deadline passed, 5000 for first place, paid.
//                                Amara reviewed 9, Baraka reviewed 7, Chiku
//                                submitted and still waiting for a review.
//                                → rate Chiku, rank, finalize.
//  2. Crop yield data pipeline   open, 3000 + 1500, NOT paid.
//                                → shows the payment lock and checkout flow.
//  3. Solar brand identity       open, non-monetary, 2 winners.
//                                → Amara has applied but not submitted.
//  4. Water point mapping        closed, Baraka won first place.
//                                → public results page.

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// Pre-determined ids keep the seed idempotent across restarts.
const (
	SeedStartupID = "seed-startup-0000-0000-0000-000000000001"
	SeedAmaraID   = "seed-amara---0000-0000-0000-000000000002"
	SeedBarakaID  = "seed-baraka--0000-0000-0000-000000000003"
	SeedChikuID   = "seed-chiku---0000-0000-0000-000000000004"

	SeedInvoiceID  = "seed-chal-invoice-0000-0000-000000000010"
	SeedPipelineID = "seed-chal-pipelin-0000-0000-000000000011"
	SeedBrandID    = "seed-chal-brand---0000-0000-000000000012"
	SeedMappingID  = "seed-chal-mapping-0000-0000-000000000013"
)

type seedChallenge struct {
	id, title, description string
	status                 models.ChallengeStatus
	deadline               time.Time
	first, second          *int64
	rewardDescription      string
	winners                int
	paid                   bool
}

type seedSubmission struct {
	id, challengeID, studentID string
	status                     models.SubmissionStatus
	rating                     *int
	feedback                   *string
	position                   *int
	link                       string
	createdAt                  time.Time
}

func seedInt(v int) *int        { return &v }
func seedMoney(v int64) *int64  { return &v }
func seedText(v string) *string { return &v }

// SeedDemo loads the demo scenario described at the top of this file.
func (s *Server) SeedDemo(w http.ResponseWriter, r *http.Request) {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "bcrypt: "+err.Error())
		return
	}
	pw := string(hash)
	now := s.now().UTC()

	// ── Users ────────────────────────────────────────────────────────────
	users := []struct {
		id, email, name string
		role            models.UserRole
	}{
		{SeedStartupID, "team@kijani.test", "Kijani Labs", models.RoleStartup},
		{SeedAmaraID, "amara@student.test", "Amara Osei", models.RoleStudent},
		{SeedBarakaID, "baraka@student.test", "Baraka Mwangi", models.RoleStudent},
		{SeedChikuID, "chiku@student.test", "Chiku Njeri", models.RoleStudent},
	}

	// ── Challenges ───────────────────────────────────────────────────────
	challenges := []seedChallenge{
		{
			id: SeedInvoiceID, title: "Offline invoice app",
			description: "Build an invoicing PWA that keeps working without network.",
			status:      models.ChallengeOpen, deadline: now.Add(-2 * time.Hour),
			first: seedMoney(5000), winners: 1, paid: true,
		},
		{
			id: SeedPipelineID, title: "Crop yield data pipeline",
			description: "Ingest county yield CSVs and publish a weekly summary.",
			status:      models.ChallengeOpen, deadline: now.AddDate(0, 0, 3),
			first: seedMoney(3000), second: seedMoney(1500), winners: 2,
		},
		{
			id: SeedBrandID, title: "Solar brand identity",
			description: "Logo and colour palette for a rural solar installer.",
			status:      models.ChallengeOpen, deadline: now.AddDate(0, 0, 7),
			rewardDescription: "Paid internship interview", winners: 2,
		},
		{
			id: SeedMappingID, title: "Water point mapping",
			description: "Map functional water points from field survey photos.",
			status:      models.ChallengeClosed, deadline: now.AddDate(0, 0, -14),
			first: seedMoney(2000), winners: 1, paid: true,
		},
	}

	// ── Submissions ──────────────────────────────────────────────────────
	submissions := []seedSubmission{
		{"seed-sub-invoice-amara", SeedInvoiceID, SeedAmaraID, models.SubmissionReviewed,
			seedInt(9), seedText("Excellent sync conflict handling."), nil,
			"https://git.example/amara/invoices", now.AddDate(0, 0, -6)},
		{"seed-sub-invoice-baraka", SeedInvoiceID, SeedBarakaID, models.SubmissionReviewed,
			seedInt(7), seedText("Clean UI, sync needs retries."), nil,
			"https://git.example/baraka/invoices", now.AddDate(0, 0, -5)},
		{"seed-sub-invoice-chiku", SeedInvoiceID, SeedChikuID, models.SubmissionSubmitted,
			nil, nil, nil,
			"https://git.example/chiku/invoices", now.AddDate(0, 0, -4)},
		{"seed-sub-pipeline-chiku", SeedPipelineID, SeedChikuID, models.SubmissionSubmitted,
			nil, nil, nil,
			"https://git.example/chiku/yields", now.AddDate(0, 0, -1)},
		{"seed-sub-brand-amara", SeedBrandID, SeedAmaraID, models.SubmissionApplied,
			nil, nil, nil, "", now.Add(-3 * time.Hour)},
		{"seed-sub-mapping-baraka", SeedMappingID, SeedBarakaID, models.SubmissionWinner,
			seedInt(8), seedText("Accurate and well documented."), seedInt(1),
			"https://git.example/baraka/water", now.AddDate(0, 0, -20)},
		{"seed-sub-mapping-amara", SeedMappingID, SeedAmaraID, models.SubmissionReviewed,
			seedInt(6), seedText("Good coverage, some duplicates."), nil,
			"https://git.example/amara/water", now.AddDate(0, 0, -19)},
	}

	tx, err := s.Store.DB().BeginTx(r.Context(), nil)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is a no-op after Commit succeeds

	for _, u := range users {
		if err := seedExec(r.Context(), tx,
			`INSERT OR IGNORE INTO users (id, email, password_hash, name, role, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			u.id, u.email, pw, u.name, u.role, now, now,
		); err != nil {
			respondError(w, http.StatusInternalServerError, "seed users: "+err.Error())
			return
		}
	}
	for _, c := range challenges {
		payment, paid := models.PaymentUnpaid, 0
		if c.paid {
			payment, paid = models.PaymentFullyPaid, 1
		}
		if err := seedExec(r.Context(), tx,
			`INSERT OR IGNORE INTO challenges (id, startup_id, title, description, status, deadline,
			   reward_first_place, reward_second_place, reward_description, number_of_winners,
			   prize_pool_paid, payment_status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.id, SeedStartupID, c.title, c.description, c.status, c.deadline,
			seedArg(c.first), seedArg(c.second), c.rewardDescription, c.winners,
			paid, payment, now.AddDate(0, 0, -30), now,
		); err != nil {
			respondError(w, http.StatusInternalServerError, "seed challenges: "+err.Error())
			return
		}
	}
	for _, sub := range submissions {
		var submittedAt any
		if sub.status != models.SubmissionApplied {
			submittedAt = sub.createdAt.Add(time.Hour)
		}
		if err := seedExec(r.Context(), tx,
			`INSERT OR IGNORE INTO submissions (id, challenge_id, student_id, status, rating,
			   feedback_comment, position, link, submitted_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sub.id, sub.challengeID, sub.studentID, sub.status, seedArg(sub.rating),
			seedArg(sub.feedback), seedArg(sub.position), sub.link, submittedAt, sub.createdAt, now,
		); err != nil {
			respondError(w, http.StatusInternalServerError, "seed submissions: "+err.Error())
			return
		}
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "database error")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"seeded": true,
		"accounts": []map[string]string{
			{"role": "startup", "email": "team@kijani.test", "password": "demo1234", "name": "Kijani Labs"},
			{"role": "student", "email": "amara@student.test", "password": "demo1234", "name": "Amara Osei"},
			{"role": "student", "email": "baraka@student.test", "password": "demo1234", "name": "Baraka Mwangi"},
			{"role": "student", "email": "chiku@student.test", "password": "demo1234", "name": "Chiku Njeri"},
		},
		"challenges": map[string]string{
			"ready_to_finalize": SeedInvoiceID,
			"payment_locked":    SeedPipelineID,
			"non_monetary":      SeedBrandID,
			"closed":            SeedMappingID,
		},
	})
}

func seedExec(ctx context.Context, tx *sql.Tx, query string, args ...any) error {
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// seedArg turns a nil pointer into SQL NULL.
func seedArg[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
