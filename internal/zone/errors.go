package zone

import "errors"

var (
	// ErrInvalidLayout is returned when a layout has a non-positive size.
	ErrInvalidLayout = errors.New("zone: layout width and height must be positive")

	// ErrInvalidIndexRange is returned when an index expression cannot be parsed.
	ErrInvalidIndexRange = errors.New("zone: invalid index range")
)
