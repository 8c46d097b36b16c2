package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"
)

// ErrorKind classifies storage failures.
type ErrorKind string

// Storage failure kinds.
const (
	KindNetwork  ErrorKind = "network"
	KindQuota    ErrorKind = "quota"
	KindAuth     ErrorKind = "auth"
	KindNotFound ErrorKind = "not_found"
	KindUnknown  ErrorKind = "unknown"
)

// StorageError is returned by every Client operation that fails.
type StorageError struct {
	Op   string // upload, delete
	Kind ErrorKind
	Key  string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("blob %s %s (%s): %v", e.Op, e.Key, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same call may succeed later without any
// change on the caller's side. Nothing retries automatically.
func (e *StorageError) Retryable() bool {
	return e.Kind == KindNetwork
}

// errQuota marks a write refused for lack of space.
var errQuota = errors.New("insufficient storage space")

// wrapError converts err into a *StorageError, classifying it unless it
// already is one.
func wrapError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		if se.Op == "" {
			se.Op = op
		}
		if se.Key == "" {
			se.Key = key
		}
		return se
	}
	return &StorageError{Op: op, Kind: classify(err), Key: key, Err: err}
}

func classify(err error) ErrorKind {
	var netErr net.Error
	switch {
	case errors.Is(err, errQuota), errors.Is(err, syscall.ENOSPC), errors.Is(err, syscall.EDQUOT):
		return KindQuota
	case errors.Is(err, fs.ErrNotExist):
		return KindNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindAuth
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindUnknown
	}
}
