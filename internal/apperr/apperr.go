// Package apperr defines the error taxonomy shared by the challenge workflow.
//
// Callers wrap one of the sentinels with fmt.Errorf("...: %w", ...) so the
// HTTP layer can classify any error with errors.Is. PartialWriteError carries
// the per-row detail needed to reconcile a failed closure by hand.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAlreadySubmitted       = errors.New("already submitted")
	ErrValidation             = errors.New("validation error")
	ErrPreconditionFailed     = errors.New("precondition failed")
	ErrPartialWrite           = errors.New("partial write failure")
	ErrTransport              = errors.New("transport error")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("forbidden")
	ErrConflict               = errors.New("conflict")
)

// Validation builds an ErrValidation with a field-specific message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Precondition builds an ErrPreconditionFailed with a reason.
func Precondition(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPreconditionFailed, fmt.Sprintf(format, args...))
}

// Transition builds an ErrInvalidStateTransition naming both states.
func Transition(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}

// PartialWriteError reports which closure writes went through and which did not.
type PartialWriteError struct {
	ChallengeID string `json:"challenge_id"`
	// Updated lists submissions whose winner update succeeded before the failure.
	Updated []string `json:"updated"`
	// Failed maps submission id to the error message of its update.
	Failed map[string]string `json:"failed"`
	// ChallengeClosed is true only if the challenge status write succeeded.
	ChallengeClosed bool `json:"challenge_closed"`
	// ChallengeError is set when the challenge status write itself failed.
	ChallengeError string `json:"challenge_error,omitempty"`
	// RolledBack means none of the writes above were persisted.
	RolledBack bool `json:"rolled_back"`
}

func (e *PartialWriteError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "closing challenge %s: %d updated, %d failed", e.ChallengeID, len(e.Updated), len(e.Failed))
	if e.ChallengeError != "" {
		fmt.Fprintf(&b, ", challenge update: %s", e.ChallengeError)
	}
	if e.RolledBack {
		b.WriteString(" (rolled back)")
	}
	return b.String()
}

func (e *PartialWriteError) Unwrap() error { return ErrPartialWrite }

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidStateTransition), errors.Is(err, ErrAlreadySubmitted), errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusPreconditionFailed
	case errors.Is(err, ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
