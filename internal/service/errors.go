package service

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrTicketReserved     = errors.New("ticket is already reserved")
	ErrEmailInUse         = errors.New("email in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
