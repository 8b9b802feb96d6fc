package types

import "errors"

// Domain errors for query validation
var (
	ErrEmptyQuery   = errors.New("query needs a prompt or at least one keyword")
	ErrInvalidDate  = errors.New("date must use the YYYY-MM-DD format")
	ErrInvalidLimit = errors.New("limit out of range")
)
