package packet

import "github.com/joomcode/errorx"

var (
	Errors = errorx.NewNamespace("packet")

	// ErrMalformed is returned for event-strings which don't match name:value|type
	ErrMalformed = Errors.NewType("malformed")
)
