package churn

import "errors"

var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrMalformedDate    = errors.New("malformed date")
)
