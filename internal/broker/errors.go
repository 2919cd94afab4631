package broker

import "errors"

// Shared error taxonomy. Callers match with errors.Is; implementations wrap
// these with fmt.Errorf("%w: ...") to add detail.
var (
	// ErrDataUnavailable means no market data exists for a request: the
	// store is unreachable, or no reference price has been set for a symbol.
	ErrDataUnavailable = errors.New("market data unavailable")

	// ErrInsufficientFunds means a buy would exceed available cash. No
	// partial fill is attempted.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrOrderRejected covers order validation failures such as a
	// non-positive quantity.
	ErrOrderRejected = errors.New("order rejected")

	// ErrOrderNotFound is returned when an order ID is unknown.
	ErrOrderNotFound = errors.New("order not found")

	// ErrNoPosition is returned when closing a symbol with no held position.
	ErrNoPosition = errors.New("no position held")

	// ErrAuthentication and ErrRateLimited exist for interface parity with
	// live brokers; the simulated broker never produces them.
	ErrAuthentication = errors.New("authentication failed")
	ErrRateLimited    = errors.New("rate limit exceeded")

	// ErrNotConnected is returned by live brokers when used before Connect.
	ErrNotConnected = errors.New("broker not connected")
)
