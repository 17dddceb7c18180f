package oms

import "errors"

var (
	errDuplicateClOrdID = errors.New("duplicate clOrdID")
	errOrderNotFound    = errors.New("order not found or terminated")
	errNotOwner         = errors.New("order belongs to another user")
	errNotCancellable   = errors.New("order not cancellable")
)
