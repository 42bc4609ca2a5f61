package domain

import "errors"

var (
	ErrInsufficientStake   = errors.New("insufficient stake amount")
	ErrInsufficientPayment = errors.New("insufficient payment + stake")
	ErrCapacityExceeded    = errors.New("not enough seats available")
	ErrInvalidState        = errors.New("invalid state")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrInvalidArgument     = errors.New("invalid argument")

	// ErrConflict is returned by repositories when an optimistic update loses
	// the race. Services retry it and never hand it to callers directly.
	ErrConflict = errors.New("optimistic lock failed: run was modified by another transaction")

	// ErrInsufficientCustody means a release would drive the custody balance
	// below zero. It indicates a broken invariant, not a user error.
	ErrInsufficientCustody = errors.New("custody balance too low for release")
)
