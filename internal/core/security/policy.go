package security

import (
	"fmt"

	"pagesmith.dev/engine/internal/core/apperr"
	"pagesmith.dev/engine/internal/core/plugin"
)

// OperationLevel returns the level an operation requires. Execute runs
// arbitrary code and always requires Advanced.
func OperationLevel(op plugin.Operation) Level {
	switch op.Type {
	case plugin.OperationExecute:
		return Advanced
	default:
		return Safe
	}
}

// RequiredLevel is the maximum level over the plugin's operations.
// A plugin without operations requires Safe.
func RequiredLevel(p plugin.Plugin) Level {
	required := Safe
	for _, op := range p.Operations {
		if lvl := OperationLevel(op); lvl > required {
			required = lvl
		}
	}
	return required
}

// CanExecute reports whether a plugin may run under the configured level.
func CanExecute(p plugin.Plugin, configured Level) bool {
	return configured.AtLeast(RequiredLevel(p))
}

// DenialReason explains why a plugin cannot run under the configured level.
// It is shown to the user verbatim. Allowed plugins yield "".
func DenialReason(p plugin.Plugin, configured Level) string {
	required := RequiredLevel(p)
	if configured.AtLeast(required) {
		return ""
	}
	return deniedMessage(required, configured)
}

// Authorize returns a *PolicyDenied when the plugin needs a higher level
// than configured.
func Authorize(p plugin.Plugin, configured Level) error {
	required := RequiredLevel(p)
	if configured.AtLeast(required) {
		return nil
	}
	return &PolicyDenied{PluginID: p.ID, Required: required, Configured: configured}
}

// PolicyDenied reports an insufficient security level. It matches
// apperr.ErrPolicyDenied under errors.Is.
type PolicyDenied struct {
	PluginID   string
	Required   Level
	Configured Level
}

// Error returns the user-facing denial reason.
func (e *PolicyDenied) Error() string {
	return deniedMessage(e.Required, e.Configured)
}

// ErrorCode reports the taxonomy code.
func (e *PolicyDenied) ErrorCode() apperr.Code {
	return apperr.CodePolicyDenied
}

// Is matches the POLICY_DENIED sentinel.
func (e *PolicyDenied) Is(target error) bool {
	return target == apperr.ErrPolicyDenied
}

func deniedMessage(required, configured Level) string {
	return fmt.Sprintf("This plugin requires the %q security level, but the current level is %q. Select %q or higher in settings to enable it.",
		required, configured, required)
}
