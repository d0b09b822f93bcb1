package token

import "errors"

var ErrInvalidSize = errors.New("token size must be positive")
