package skillgap

import "errors"

var (
	ErrNotFound     = errors.New("skill not found")
	ErrInvalidInput = errors.New("invalid input")
)
