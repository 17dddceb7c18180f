package model

import "errors"

var (
	ErrIllegalTransition = errors.New("illegal order state transition")
	ErrInvalidFillQty    = errors.New("invalid fill quantity")
)
