package rbac

import (
	"errors"
	"fmt"

	"github.com/motorhub/motorhub/internal/shared"
)

// ErrUnknownRole indicates raw input that names no role of the closed set.
var ErrUnknownRole = errors.New("rbac: unknown role")

// ConfigurationError reports a role mapping defect: an unmapped role or a broken grant table.
// It is never an authorization verdict and must not be swallowed.
type ConfigurationError struct {
	Role   Role
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Role == "" {
		return "rbac: configuration: " + e.Reason
	}
	return fmt.Sprintf("rbac: configuration: role %q: %s", e.Role, e.Reason)
}

// Unwrap lets errors.Is match shared.ErrConfiguration.
func (e *ConfigurationError) Unwrap() error { return shared.ErrConfiguration }
