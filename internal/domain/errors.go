package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidationFailed marks caller-side misuse rejected before any network call,
	// or lines the commerce backend refused.
	ErrValidationFailed = errors.New("validation failed")
	// ErrUpstreamUnavailable indicates the commerce backend is reachable but not provisioned.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNetwork is a transient failure reaching a backend.
	ErrNetwork = errors.New("network error")
	// ErrIntegration means a backend answered successfully with an unusable response.
	ErrIntegration = errors.New("integration error")
)

// CheckoutError carries a shopper-facing message alongside one of the error kinds above.
type CheckoutError struct {
	Kind    error
	Message string
}

func (e *CheckoutError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *CheckoutError) Unwrap() error {
	return e.Kind
}

// NewCheckoutError wraps kind with a message.
func NewCheckoutError(kind error, message string) *CheckoutError {
	return &CheckoutError{Kind: kind, Message: message}
}

// ErrorMessage returns the message attached to a CheckoutError, or err's text otherwise.
func ErrorMessage(err error) string {
	var ce *CheckoutError
	if errors.As(err, &ce) {
		if ce.Message != "" {
			return ce.Message
		}
		return ce.Kind.Error()
	}
	return err.Error()
}

// ErrorCode maps an error to the stable code used in API error envelopes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrIntegration):
		return "integration_error"
	case errors.Is(err, ErrNetwork):
		return "network_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal_error"
	}
}

// ErrorFromCode is the inverse of ErrorCode for the taxonomy kinds.
func ErrorFromCode(code string) error {
	switch code {
	case "validation_failed":
		return ErrValidationFailed
	case "upstream_unavailable":
		return ErrUpstreamUnavailable
	case "integration_error":
		return ErrIntegration
	case "network_error":
		return ErrNetwork
	case "not_found":
		return ErrNotFound
	default:
		return nil
	}
}
