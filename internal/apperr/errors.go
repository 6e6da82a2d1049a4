package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrNotSVG           = errors.New("not an svg document")
	ErrInvalidSize      = errors.New("invalid size")
	ErrCancelled        = errors.New("cancelled")
	ErrOutsideWorkspace = errors.New("outside workspace")
	ErrUnknownCommand   = errors.New("unknown command")
)
