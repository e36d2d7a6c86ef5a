package service

import "errors"

var (
	ErrInvalidInput = errors.New("invalid JSON input")
	ErrInvalidLevel = errors.New("invalid log level")
	ErrInvalidDate  = errors.New("invalid date")
	ErrNotFound     = errors.New("log file not found")
)

// Operation names carried by OpError.
const (
	OpWrite = "write"
	OpRead  = "read"
)

// OpError is an unexpected I/O or serialization failure during Op.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return e.Op + " log: " + e.Err.Error() }

func (e *OpError) Unwrap() error { return e.Err }
