package user

import "errors"

var (
	ErrNotFound          = errors.New("user not found")
	ErrEmailTaken        = errors.New("email is already registered")
	ErrPasswordNotLoaded = errors.New("password hash was not loaded")
)
