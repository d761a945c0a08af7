package peripheral

import "errors"

var (
	ErrInvalidPinout  = errors.New("invalid pinout")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrAlreadyClaimed = errors.New("peripheral already claimed")
	ErrInvalidADCPin  = errors.New("not a valid ADC pin")
)
