package lamp

import "errors"

var (
	// ErrInvalidColor is returned when a colour literal cannot be parsed.
	ErrInvalidColor = errors.New("lamp: invalid colour")

	// ErrUnavailable is returned by arrays that cannot accept frames right now.
	ErrUnavailable = errors.New("lamp: array unavailable")

	// ErrIndexOutOfRange is returned when a lamp index is outside 0..LampCount-1.
	ErrIndexOutOfRange = errors.New("lamp: index out of range")

	// ErrLengthMismatch is returned when colour and index slices differ in length.
	ErrLengthMismatch = errors.New("lamp: colours and indices differ in length")
)
