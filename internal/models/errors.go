package models

import "errors"

var (
	ErrInvalidIdentity  = errors.New("identity must not be empty")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
)
