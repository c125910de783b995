package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable error taxonomy exposed to clients.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation_error"
	KindAmbiguous        ErrorKind = "ambiguous_reference"
	KindUnsupported      ErrorKind = "unsupported_intent"
	KindNotFound         ErrorKind = "not_found"
	KindTimeout          ErrorKind = "query_timeout"
	KindPartialIngestion ErrorKind = "ingestion_partial_failure"
	KindInternal         ErrorKind = "internal_error"
)

// Error is a structured error with a kind the client can branch on.
// Error responses always carry {kind, message, detail?}, never a bare string.
type Error struct {
	Kind    ErrorKind   `json:"kind"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError builds a structured error.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches structured detail and returns the error.
func (e *Error) WithDetail(detail interface{}) *Error {
	e.Detail = detail
	return e
}

// KindOf extracts the taxonomy kind from any error, defaulting to
// internal_error for untyped failures.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// RowError reports one rejected ingestion row. One bad row never aborts
// the batch; failures are aggregated and reported.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// IngestResult summarizes one ingestion pass. A pass with rejected rows
// carries KindPartialIngestion; the batch itself still succeeds.
type IngestResult struct {
	Kind     ErrorKind  `json:"kind,omitempty"`
	Ingested int        `json:"ingested"`
	Errors   []RowError `json:"errors"`
}
