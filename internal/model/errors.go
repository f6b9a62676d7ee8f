package model

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrUpstream    = errors.New("upstream failure")
	ErrUnavailable = errors.New("unavailable")
)
