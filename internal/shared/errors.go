package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied indicates a recognized role lacking the required permission.
	ErrAccessDenied = errors.New("access denied")
	// ErrIllegalTransition indicates the entity state does not allow the requested action.
	ErrIllegalTransition = errors.New("illegal transition")
	// ErrValidation indicates malformed input or a missing reason/remarks.
	ErrValidation = errors.New("validation failed")
	// ErrConcurrentModification indicates the entity changed between read and commit.
	ErrConcurrentModification = errors.New("concurrent modification")
	// ErrConfiguration indicates a broken role mapping. It is a deployment defect.
	ErrConfiguration = errors.New("authorization configuration error")
)

// TransitionError describes a lifecycle action attempted from a state that does not allow it.
type TransitionError struct {
	Entity    string
	From      string
	Attempted string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s from %s", e.Entity, e.Attempted, e.From)
}

// Unwrap lets errors.Is match ErrIllegalTransition.
func (e *TransitionError) Unwrap() error { return ErrIllegalTransition }

// IllegalTransition builds a TransitionError.
func IllegalTransition(entity, from, attempted string) error {
	return &TransitionError{Entity: entity, From: from, Attempted: attempted}
}

// ValidationError pins a validation failure to a single input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Deny builds an access denied error naming the role and the refused action.
func Deny(role, action string) error {
	return fmt.Errorf("%w: %s may not %s", ErrAccessDenied, role, action)
}

// FromValidator converts validator output into a ValidationError for the first failing field.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{Field: strings.ToLower(fe.Field()), Reason: "failed " + reason}
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// IsBlank reports whether s is empty after trimming whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
