package runner

import "errors"

var (
	ErrNoFrames    = errors.New("scenario has no frames to run")
	ErrTraceClosed = errors.New("trace writer is closed")
)
