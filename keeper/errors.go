package keeper

import "errors"

var (
	ErrAccountExists     = errors.New("Account Already Exist")
	ErrAccountNotFound   = errors.New("Account not found")
	ErrSubmissionTimeout = errors.New("no state change observed before timeout")
	ErrMissingRecord     = errors.New("committed record missing from store")
)
