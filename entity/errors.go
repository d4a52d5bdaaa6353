package entity

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("permission denied")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)
