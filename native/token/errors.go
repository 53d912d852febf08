package token

import "errors"

var (
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrInvalidAmount       = errors.New("token: amount must be positive")
	ErrSupplyOverflow      = errors.New("token: total supply overflow")
	ErrNilState            = errors.New("token: state not configured")
)
