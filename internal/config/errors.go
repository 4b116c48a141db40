package config

import "errors"

var (
	ErrUnknownDriver   = errors.New("unknown storage driver")
	ErrEmptyCollection = errors.New("storage collection is empty")
)
