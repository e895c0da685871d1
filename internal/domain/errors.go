package domain

import (
	"errors"
	"fmt"
)

// Conflict reasons let callers tell "too late" apart from "already done".
const (
	ConflictAnswered   = "already_answered"
	ConflictExpired    = "question_expired"
	ConflictNotPending = "not_pending"
	ConflictNotPayable = "not_payable"
	ConflictReviewed   = "already_reviewed"
	ConflictNotDue     = "not_due"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// StateConflictError reports a failed lifecycle guard. No state was changed.
type StateConflictError struct {
	QuestionID uint
	Reason     string
	Status     string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("question %d: %s (status %s)", e.QuestionID, e.Reason, e.Status)
}

// UpstreamError wraps a payment gateway failure. The owning transition has
// already committed when this is returned from an expiry.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *UpstreamError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	if e.ID == 0 {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func NewValidationError(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

func NewAuthorizationError(msg string) error { return &AuthorizationError{Message: msg} }

func NewConflict(questionID uint, reason, status string) error {
	return &StateConflictError{QuestionID: questionID, Reason: reason, Status: status}
}

func NewNotFound(resource string, id uint) error { return &NotFoundError{Resource: resource, ID: id} }

func NewUpstreamError(op string, err error) error { return &UpstreamError{Op: op, Err: err} }

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// ConflictReason returns the conflict reason if err is a StateConflictError.
func ConflictReason(err error) (string, bool) {
	var e *StateConflictError
	if errors.As(err, &e) {
		return e.Reason, true
	}
	return "", false
}
