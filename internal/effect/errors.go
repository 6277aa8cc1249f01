package effect

import "errors"

var (
	// ErrUnknownType is returned when a Spec names an effect that does not exist.
	ErrUnknownType = errors.New("effect: unknown effect type")

	// ErrInvalidParameter is returned when a Spec parameter is out of range
	// or cannot be parsed.
	ErrInvalidParameter = errors.New("effect: invalid parameter")

	// ErrScreenSize is returned when a screen buffer does not match its
	// declared dimensions.
	ErrScreenSize = errors.New("effect: screen buffer size mismatch")
)
