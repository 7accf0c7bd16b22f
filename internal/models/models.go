package models

import "time"

// UserRole defines the type of user account.
type UserRole string

const (
	RoleStudent   UserRole = "student"
	RoleStartup   UserRole = "startup"
	RoleProfessor UserRole = "professor"
)

// Valid reports whether r is one of the account roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleStartup, RoleProfessor:
		return true
	}
	return false
}

// ChallengeStatus represents the lifecycle state of a challenge.
type ChallengeStatus string

const (
	ChallengeDraft    ChallengeStatus = "draft"
	ChallengeOpen     ChallengeStatus = "open"
	ChallengeClosed   ChallengeStatus = "closed"
	ChallengeArchived ChallengeStatus = "archived"
)

// PaymentStatus is the escrow state reported by the checkout provider.
type PaymentStatus string

const (
	PaymentUnpaid    PaymentStatus = "unpaid"
	PaymentPending   PaymentStatus = "pending"
	PaymentFullyPaid PaymentStatus = "fully_paid"
)

// SubmissionStatus tracks a student's participation in a challenge.
type SubmissionStatus string

const (
	SubmissionApplied   SubmissionStatus = "applied"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionReviewed  SubmissionStatus = "reviewed"
	SubmissionWinner    SubmissionStatus = "winner"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// IsActive reports whether the student actually turned something in.
func (s SubmissionStatus) IsActive() bool {
	switch s {
	case SubmissionSubmitted, SubmissionReviewed, SubmissionWinner, SubmissionRejected:
		return true
	}
	return false
}

// IsRated reports whether the startup has already evaluated the submission.
func (s SubmissionStatus) IsRated() bool {
	switch s {
	case SubmissionReviewed, SubmissionWinner, SubmissionRejected:
		return true
	}
	return false
}

// User represents student, startup and professor accounts.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Challenge is a time-boxed task posted by a startup.
type Challenge struct {
	ID          string          `json:"id"`
	StartupID   string          `json:"startup_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      ChallengeStatus `json:"status"`
	Deadline    time.Time       `json:"deadline"`

	// Reward amounts are in minor currency units. A nil place is not offered.
	RewardFirstPlace  *int64 `json:"reward_first_place"`
	RewardSecondPlace *int64 `json:"reward_second_place"`
	RewardThirdPlace  *int64 `json:"reward_third_place"`
	// RewardDescription describes a non-monetary reward.
	RewardDescription string `json:"reward_description,omitempty"`
	// NumberOfWinners only applies when no monetary reward is set.
	NumberOfWinners int  `json:"number_of_winners"`
	MaxApplicants   *int `json:"max_applicants"`

	PrizePoolPaid bool          `json:"prize_pool_paid"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Rewards returns the three place rewards in place order.
func (c Challenge) Rewards() [3]*int64 {
	return [3]*int64{c.RewardFirstPlace, c.RewardSecondPlace, c.RewardThirdPlace}
}

// Submission is one student's participation in one challenge.
type Submission struct {
	ID          string           `json:"id"`
	ChallengeID string           `json:"challenge_id"`
	StudentID   string           `json:"student_id"`
	Status      SubmissionStatus `json:"status"`
	Rating      *int             `json:"rating"`
	Feedback    *string          `json:"feedback_comment"`
	// Position is only set for winners.
	Position *int `json:"position"`

	Link             string     `json:"link,omitempty"`
	FileURL          string     `json:"file_url,omitempty"`
	CompletedOutputs []string   `json:"completed_outputs"`
	SubmittedAt      *time.Time `json:"submitted_at"`

	IsFavorite        bool `json:"is_favorite"`
	IsPublicOnProfile bool `json:"is_public_on_profile"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingValue returns the rating or zero when the submission is unrated.
func (s Submission) RatingValue() int {
	if s.Rating == nil {
		return 0
	}
	return *s.Rating
}

// StatusChange is one row of a submission's status audit trail.
type StatusChange struct {
	ID           string           `json:"id"`
	SubmissionID string           `json:"submission_id"`
	OldStatus    SubmissionStatus `json:"old_status"`
	NewStatus    SubmissionStatus `json:"new_status"`
	ChangedBy    string           `json:"changed_by"`
	CreatedAt    time.Time        `json:"created_at"`
}

// ---- Request / Response DTOs ----

type RegisterRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type CreateChallengeRequest struct {
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Deadline          time.Time `json:"deadline"`
	RewardFirstPlace  *int64    `json:"reward_first_place"`
	RewardSecondPlace *int64    `json:"reward_second_place"`
	RewardThirdPlace  *int64    `json:"reward_third_place"`
	RewardDescription string    `json:"reward_description"`
	NumberOfWinners   int       `json:"number_of_winners"`
	MaxApplicants     *int      `json:"max_applicants"`
}

type SubmitRequest struct {
	Link             string   `json:"link"`
	FileURL          string   `json:"file_url"`
	CompletedOutputs []string `json:"completed_outputs"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type MoveRequest struct {
	SubmissionID string `json:"submission_id"`
	// Slot is the 1-based placement; 0 sends the submission back to the shortlist.
	Slot int `json:"slot"`
}

type ReorderRequest struct {
	SubmissionID string `json:"submission_id"`
	Index        int    `json:"index"`
}

type FinalizeRequest struct {
	// Placements maps place → submission id. When empty, the caller's board is used.
	Placements map[int]string `json:"placements"`
}

type FlagRequest struct {
	Value bool `json:"value"`
}

type HiddenRequest struct {
	SubmissionIDs []string `json:"submission_ids"`
}

type CheckoutConfirmRequest struct {
	Token string `json:"token"`
}

// SubmissionPatch lists submission columns to change. Nil fields are left as is.
type SubmissionPatch struct {
	// From, when set, is the status the change was validated against. The
	// write only applies if the row still has that status.
	From *SubmissionStatus

	Status           *SubmissionStatus
	Rating           *int
	Feedback         *string
	Position         *int
	ClearPosition    bool
	Link             *string
	FileURL          *string
	CompletedOutputs []string
	SubmittedAt      *time.Time
	IsFavorite       *bool
	IsPublic         *bool
}

// Empty reports whether the patch changes nothing.
func (p SubmissionPatch) Empty() bool {
	return p.Status == nil && p.Rating == nil && p.Feedback == nil && p.Position == nil &&
		!p.ClearPosition && p.Link == nil && p.FileURL == nil && p.CompletedOutputs == nil &&
		p.SubmittedAt == nil && p.IsFavorite == nil && p.IsPublic == nil
}

// Apply copies the patch onto s.
func (p SubmissionPatch) Apply(s *Submission) {
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Rating != nil {
		r := *p.Rating
		s.Rating = &r
	}
	if p.Feedback != nil {
		f := *p.Feedback
		s.Feedback = &f
	}
	if p.ClearPosition {
		s.Position = nil
	}
	if p.Position != nil {
		pos := *p.Position
		s.Position = &pos
	}
	if p.Link != nil {
		s.Link = *p.Link
	}
	if p.FileURL != nil {
		s.FileURL = *p.FileURL
	}
	if p.CompletedOutputs != nil {
		s.CompletedOutputs = append([]string(nil), p.CompletedOutputs...)
	}
	if p.SubmittedAt != nil {
		at := *p.SubmittedAt
		s.SubmittedAt = &at
	}
	if p.IsFavorite != nil {
		s.IsFavorite = *p.IsFavorite
	}
	if p.IsPublic != nil {
		s.IsPublicOnProfile = *p.IsPublic
	}
}

// ChallengePatch lists challenge columns to change.
type ChallengePatch struct {
	Status        *ChallengeStatus
	PrizePoolPaid *bool
	PaymentStatus *PaymentStatus
}
