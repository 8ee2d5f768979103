package registry

import (
	"errors"
	"fmt"
)

// UnknownJurisdictionError means the filing's county has no registry code in
// the configured map. Raised by the query builder before any registry call.
type UnknownJurisdictionError struct {
	County string
}

func (e *UnknownJurisdictionError) Error() string {
	return fmt.Sprintf("registry: unknown jurisdiction %q", e.County)
}

// IsUnknownJurisdiction reports whether err's chain contains an
// UnknownJurisdictionError.
func IsUnknownJurisdiction(err error) bool {
	var uj *UnknownJurisdictionError
	return errors.As(err, &uj)
}

// UnavailableError means the registry could not answer: transport failure,
// throttling, a 5xx, an exhausted circuit breaker. It is never used for an
// empty result set, which is a successful answer.
type UnavailableError struct {
	Provider string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("registry: %s unavailable: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as an UnavailableError for the named provider.
func Unavailable(provider string, err error) *UnavailableError {
	return &UnavailableError{Provider: provider, Err: err}
}

// IsUnavailable reports whether err's chain contains an UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}
