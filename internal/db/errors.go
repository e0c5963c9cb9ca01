package db

import "errors"

// ErrKeyNotFound signals a missing string key.
var ErrKeyNotFound = errors.New("db: key not found")

// Op names the command that failed.
const (
	OpHGetAll = "HGETALL"
	OpHSet    = "HSET"
	OpGet     = "GET"
	OpSet     = "SET"
	OpIncrBy  = "INCRBY"
	OpUnlink  = "UNLINK"
	OpScan    = "SCAN"
)

// Error wraps a driver error with the failing command.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "db: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
