package apperr

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers of the order and cart services.
var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrAddressNotFound     = errors.New("address not found")
	ErrCartNotFound        = errors.New("cart not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderUpdateFailed   = errors.New("order update failed")
	ErrInvalidArgument     = errors.New("invalid argument")

	// ErrDependencyUnavailable is returned only when the fallback policy is
	// configured to fail instead of substituting a degraded response.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)

// Reasons of ErrOrderUpdateFailed.
var (
	ErrCancellationWindowExpired = fmt.Errorf("%w: cancellation window expired", ErrOrderUpdateFailed)
	ErrNotAuthorized             = fmt.Errorf("%w: not authorized", ErrOrderUpdateFailed)
	ErrInvalidTransition         = fmt.Errorf("%w: order is not in PLACED state", ErrOrderUpdateFailed)
)

// Errors produced by remote gateways.
var (
	ErrRemoteNotFound   = errors.New("remote resource not found")
	ErrCapabilityDenied = errors.New("capability denied")
)

// GatewayError is a transport-level failure of a remote call: the remote
// service was unreachable, timed out, or answered with a server error.
type GatewayError struct {
	Service string
	Op      string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s.%s: %v", e.Service, e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsGatewayError reports whether err is (or wraps) a *GatewayError.
func IsGatewayError(err error) bool {
	var gwErr *GatewayError

	return errors.As(err, &gwErr)
}

// Kind returns the client-facing name of the error kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCustomerNotFound):
		return "CustomerNotFound"
	case errors.Is(err, ErrAddressNotFound):
		return "AddressNotFound"
	case errors.Is(err, ErrCartNotFound):
		return "CartNotFound"
	case errors.Is(err, ErrInsufficientBalance):
		return "InsufficientBalance"
	case errors.Is(err, ErrOrderNotFound):
		return "OrderNotFound"
	case errors.Is(err, ErrOrderUpdateFailed):
		return "OrderUpdateFailed"
	case errors.Is(err, ErrInvalidArgument):
		return "InvalidArgument"
	case errors.Is(err, ErrDependencyUnavailable):
		return "DependencyUnavailable"
	default:
		return "Internal"
	}
}
