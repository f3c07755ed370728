package shared

import "errors"

// TransitionObserver receives lifecycle outcomes for metrics.
type TransitionObserver interface {
	ObserveTransition(entity, action, outcome string)
	ObserveDispatchWarning(entity string)
}

// NopObserver discards observations.
type NopObserver struct{}

// ObserveTransition implements TransitionObserver.
func (NopObserver) ObserveTransition(string, string, string) {}

// ObserveDispatchWarning implements TransitionObserver.
func (NopObserver) ObserveDispatchWarning(string) {}

// Outcome labels err for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrAccessDenied):
		return "denied"
	case errors.Is(err, ErrIllegalTransition):
		return "illegal"
	case errors.Is(err, ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConfiguration):
		return "misconfigured"
	default:
		return "error"
	}
}
