package repo

import (
	"errors"
	"strings"
)

// StoreError is a failure reported by the backing store. Error returns the
// store's own message unchanged.
type StoreError struct {
	Message string
	Code    string
	Err     error
}

func (e *StoreError) Error() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "store error"
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// StoreMessage returns the message to surface for err.
func StoreMessage(err error) string {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Error()
	}
	return err.Error()
}
