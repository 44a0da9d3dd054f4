package request

import "errors"

// Request-level errors
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownOp      = errors.New("unknown operation")
)

// Error codes reported in the result of a failed response.
const (
	CodeInvalidRequest = "invalid_request"
	CodeInvalidWorld   = "invalid_world"
)
