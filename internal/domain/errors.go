package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation            ErrorKind = "VALIDATION_ERROR"
	KindChecksumMismatch      ErrorKind = "CHECKSUM_MISMATCH"
	KindPartialRestoreFailure ErrorKind = "PARTIAL_RESTORE_FAILURE"
	KindImportFormat          ErrorKind = "IMPORT_FORMAT_ERROR"
	KindScheduleConfig        ErrorKind = "SCHEDULE_CONFIG_ERROR"
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindStorage               ErrorKind = "STORAGE_ERROR"
	KindExport                ErrorKind = "EXPORT_ERROR"
	KindInternal              ErrorKind = "INTERNAL_ERROR"
)

var (
	// ErrNotFound is returned by stores and repositories for missing entries.
	ErrNotFound = errors.New("not found")
	// ErrPartialWrite is returned by Store.SetMany when some values were
	// written and could not be rolled back.
	ErrPartialWrite = errors.New("partial write")
)

// Error is the typed failure surfaced by every use case.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NewValidationError(message string, cause error) *Error {
	return NewError(KindValidation, message, cause)
}

func NewChecksumMismatchError(message string) *Error {
	return NewError(KindChecksumMismatch, message, nil)
}

func NewPartialRestoreError(message string, cause error) *Error {
	return NewError(KindPartialRestoreFailure, message, cause)
}

func NewImportFormatError(message string, cause error) *Error {
	return NewError(KindImportFormat, message, cause)
}

func NewScheduleConfigError(message string, cause error) *Error {
	return NewError(KindScheduleConfig, message, cause)
}

func NewNotFoundError(message string) *Error {
	return NewError(KindNotFound, message, ErrNotFound)
}

func NewStorageError(message string, cause error) *Error {
	return NewError(KindStorage, message, cause)
}

func NewExportError(message string, cause error) *Error {
	return NewError(KindExport, message, cause)
}

// KindOf classifies err, falling back to INTERNAL_ERROR for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

// Message returns the human readable part of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
