package panel

import "errors"

// Errors returned by panel lifecycle and attach functions. Use errors.Is to
// classify; the wrapped cause is kept in the chain.
var (
	// ErrPower is returned when the supply regulator cannot be switched.
	ErrPower = errors.New("panel: power regulator failure")

	// ErrGPIO is returned when the reset line cannot be driven.
	ErrGPIO = errors.New("panel: gpio failure")

	// ErrConfig is returned at attach time for unknown variants, invalid
	// tables or missing resources. The panel is never registered.
	ErrConfig = errors.New("panel: invalid configuration")

	// ErrInvalidTransition is returned when a lifecycle call is not legal in
	// the current state.
	ErrInvalidTransition = errors.New("panel: invalid lifecycle transition")

	// ErrNotPowered is returned for register reads on an unpowered panel.
	ErrNotPowered = errors.New("panel: not powered")
)
