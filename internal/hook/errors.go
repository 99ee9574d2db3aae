package hook

import "errors"

var (
	// ErrEmptyInput is returned when stdin carried no event.
	ErrEmptyInput = errors.New("empty hook input")

	// ErrMalformedInput is returned when stdin is not a JSON object.
	ErrMalformedInput = errors.New("malformed hook input")
)
