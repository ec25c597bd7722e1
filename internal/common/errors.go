package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Workflow error taxonomy
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUpload            = errors.New("upload rejected")
	ErrInvalidSchema     = errors.New("invalid schema")
	ErrExtraction        = errors.New("extraction failed")
	ErrSchemaMismatch    = errors.New("schema mismatch")
	ErrInvalidTransition = errors.New("invalid workflow transition")
	ErrEmptyRow          = errors.New("row has no extracted values")
	ErrExport            = errors.New("export failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// UploadError rejects a schema or document before it enters the workflow.
func UploadError(format string, args ...any) error {
	return NewAppError("UPLOAD_ERROR", fmt.Sprintf(format, args...), ErrUpload)
}

// TransitionError rejects an action that the current stage does not allow.
func TransitionError(action, stage, reason string) error {
	return NewAppError("INVALID_TRANSITION", fmt.Sprintf("%s not allowed in stage %s: %s", action, stage, reason), ErrInvalidTransition)
}

// SchemaMismatchError reports a row whose length disagrees with the dataset schema.
type SchemaMismatchError struct {
	Want int
	Got  int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: row has %d cells, schema has %d columns", e.Got, e.Want)
}

func (e *SchemaMismatchError) Unwrap() error { return ErrSchemaMismatch }

// ExtractionError wraps a failed, timed out or canceled call to the extraction boundary.
type ExtractionError struct {
	Cause    error
	TimedOut bool
	Canceled bool
}

func (e *ExtractionError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("extraction timed out: %v", e.Cause)
	case e.Canceled:
		return fmt.Sprintf("extraction canceled: %v", e.Cause)
	}
	return fmt.Sprintf("extraction failed: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() []error { return []error{ErrExtraction, e.Cause} }

// NewExtractionError classifies err, marking context deadline and cancellation.
func NewExtractionError(err error) *ExtractionError {
	return &ExtractionError{
		Cause:    err,
		TimedOut: errors.Is(err, context.DeadlineExceeded),
		Canceled: errors.Is(err, context.Canceled),
	}
}

// ToStatus maps the error taxonomy onto gRPC status codes for hosting layers.
func ToStatus(err error) *status.Status {
	if err == nil {
		return status.New(codes.OK, "")
	}
	var ee *ExtractionError
	switch {
	case errors.As(err, &ee) && ee.TimedOut:
		return status.New(codes.DeadlineExceeded, err.Error())
	case errors.As(err, &ee) && ee.Canceled:
		return status.New(codes.Canceled, err.Error())
	case errors.Is(err, ErrExtraction):
		return status.New(codes.Unavailable, err.Error())
	case errors.Is(err, ErrUpload), errors.Is(err, ErrInvalidSchema), errors.Is(err, ErrInvalidInput):
		return status.New(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrSchemaMismatch), errors.Is(err, ErrEmptyRow):
		return status.New(codes.FailedPrecondition, err.Error())
	}
	return status.New(codes.Internal, err.Error())
}
