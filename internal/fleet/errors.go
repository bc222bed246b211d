package fleet

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for resolution failures. Match with errors.Is.
var (
	// ErrUnknownModel means a requested id is not in the catalog.
	ErrUnknownModel = errors.New("unknown model")

	// ErrDuplicateName means two requested ids derive the same name.
	// This is fatal for the whole pass.
	ErrDuplicateName = errors.New("duplicate endpoint name")

	// ErrSecretUnavailable means a gated model was requested without a
	// hub access token.
	ErrSecretUnavailable = errors.New("hub token unavailable")

	// ErrProvisioning means the external side effect for one endpoint failed.
	ErrProvisioning = errors.New("provisioning failed")
)

// ResolutionError records one failure while resolving a requested model id.
// Non-fatal errors are accumulated; resolution of the remaining ids continues.
type ResolutionError struct {
	// ModelID is the requested identifier the error applies to.
	ModelID string

	// Kind is one of the sentinel errors above.
	Kind error

	// Cause carries the underlying provisioning error, if any.
	Cause error
}

func (e *ResolutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.ModelID, e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.ModelID, e.Kind)
}

// Unwrap lets errors.Is match the error kind.
func (e *ResolutionError) Unwrap() error {
	return e.Kind
}

// Fatal reports whether the error must abort the whole resolution pass.
func (e *ResolutionError) Fatal() bool {
	return errors.Is(e.Kind, ErrDuplicateName)
}
