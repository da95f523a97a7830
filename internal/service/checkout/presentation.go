package checkout

import (
	"errors"

	"somnicart/internal/domain"
)

// Path is how a checkout failure is presented to the shopper.
type Path string

const (
	PathRetry           Path = "retry"
	PathUnavailableItem Path = "unavailable_item"
	PathContactSupport  Path = "contact_support"
)

// Presentation picks the presentation path and message for a checkout error.
func Presentation(err error) (Path, string) {
	switch {
	case errors.Is(err, domain.ErrValidationFailed):
		msg := domain.ErrorMessage(err)
		if msg == "" || msg == domain.ErrValidationFailed.Error() {
			msg = "This item is no longer available."
		}
		return PathUnavailableItem, msg
	case errors.Is(err, domain.ErrUpstreamUnavailable), errors.Is(err, domain.ErrIntegration):
		return PathContactSupport, "We're experiencing an issue with checkout. Please contact support."
	default:
		return PathRetry, "Something went wrong. Please try again."
	}
}
