package domain

import (
	"errors"
	"fmt"
	"time"
)

// Pipeline failure kinds. Match with errors.Is.
var (
	// ErrModelUnavailable means the model artifact is missing or failed to load.
	// No request can be served while it holds.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInferenceFailure means the external classifier call failed for one request.
	ErrInferenceFailure = errors.New("inference failure")

	// ErrInvalidInput means the request could not be turned into a PatientRecord.
	ErrInvalidInput = errors.New("invalid input")
)

// Error codes for transport responses
const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeModelUnavailable = "MODEL_UNAVAILABLE"
	CodeInferenceFailure = "INFERENCE_FAILURE"
	CodeOutOfRangeInput  = "OUT_OF_RANGE_INPUT"
	CodeInternalServer   = "INTERNAL_SERVER_ERROR"
)

// ClassifierError carries the failure kind together with the operation that raised it.
type ClassifierError struct {
	Kind error  // ErrModelUnavailable or ErrInferenceFailure
	Op   string // "load", "predict", "predict_probability"
	Err  error
}

// NewClassifierError creates a new ClassifierError
func NewClassifierError(kind error, op string, err error) *ClassifierError {
	return &ClassifierError{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface
func (e *ClassifierError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ClassifierError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Code maps the failure kind to its transport error code.
func (e *ClassifierError) Code() string {
	return ErrorCode(e)
}

// ErrorCode returns the transport code for any error produced by the pipeline.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrModelUnavailable):
		return CodeModelUnavailable
	case errors.Is(err, ErrInferenceFailure):
		return CodeInferenceFailure
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	default:
		return CodeInternalServer
	}
}

// RangeWarning reports an input outside its plausible or typical bounds.
// It is non-fatal: the request still proceeds.
type RangeWarning struct {
	Code    string  `json:"code"`
	Field   string  `json:"field"`
	Value   float64 `json:"value"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Message string  `json:"message"`
}

// Error implements the error interface so warnings can be logged like errors.
func (w RangeWarning) Error() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// NewRangeWarning creates an OutOfRangeInput warning
func NewRangeWarning(field string, value, min, max float64, message string) RangeWarning {
	return RangeWarning{
		Code:    CodeOutOfRangeInput,
		Field:   field,
		Value:   value,
		Min:     min,
		Max:     max,
		Message: message,
	}
}

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}
