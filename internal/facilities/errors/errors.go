package errors

import "errors"

var (
	ErrNotFound  = errors.New("facility not found")
	ErrInvalidID = errors.New("invalid facility ID")
)
