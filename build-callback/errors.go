package main

import (
	"net/http"

	"github.com/prompt-apk-builder/build-callback/internal/platform/httpserver"
	"github.com/prompt-apk-builder/build-callback/internal/repo"
)

type errorKind string

const (
	kindValidation  errorKind = "validation"
	kindPersistence errorKind = "persistence"
	kindUnexpected  errorKind = "unexpected"
)

const missingBuildIDBody = "Missing build_id"

// callbackError is the result of a failed callback step. Only persistence errors
// expose their message to the caller.
type callbackError struct {
	kind    errorKind
	message string
	buildID string
	err     error
}

func (e *callbackError) Error() string {
	if e.err != nil {
		return string(e.kind) + ": " + e.err.Error()
	}
	return string(e.kind) + ": " + e.message
}

func (e *callbackError) Unwrap() error {
	return e.err
}

func validationError(message string) *callbackError {
	return &callbackError{kind: kindValidation, message: message}
}

func persistenceError(buildID string, err error) *callbackError {
	return &callbackError{kind: kindPersistence, message: repo.StoreMessage(err), buildID: buildID, err: err}
}

func unexpectedError(err error) *callbackError {
	return &callbackError{kind: kindUnexpected, message: httpserver.InternalErrorBody, err: err}
}

func (e *callbackError) response() (int, string) {
	switch e.kind {
	case kindValidation:
		return http.StatusBadRequest, e.message
	case kindPersistence:
		return http.StatusInternalServerError, e.message
	default:
		return http.StatusInternalServerError, httpserver.InternalErrorBody
	}
}
