package world

import "errors"

var (
	ErrInvalidWorld    = errors.New("invalid world")
	ErrInvalidScenario = errors.New("invalid scenario")
)
