package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is wrapped by ProviderError when a service's
	// requests_per_minute budget is exhausted
	ErrRateLimited = errors.New("provider rate limit exceeded")

	// ErrTimeout is wrapped by ProviderError when a call exceeds its timeout
	ErrTimeout = errors.New("provider call timed out")
)

// UnsupportedProviderError means a resolved config names a vendor with no
// adapter. It indicates a configuration or deployment bug.
type UnsupportedProviderError struct {
	ServiceName string
	Capability  string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported %s service: %s", e.Capability, e.ServiceName)
}

// ProviderError wraps a network, timeout or vendor-side failure
type ProviderError struct {
	ServiceName string
	Operation   Operation
	Err         error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.ServiceName, e.Operation, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func unsupportedOperation(name string, op Operation) error {
	return fmt.Errorf("%s does not support operation %s", name, op)
}
