package model

import (
	"fmt"
)

// ExtractionErrorKind classifies failures of the extraction call.
type ExtractionErrorKind string

const (
	ExtractionUpstreamUnavailable ExtractionErrorKind = "upstream_unavailable"
	ExtractionMalformedResponse   ExtractionErrorKind = "malformed_response"
	ExtractionTimeout             ExtractionErrorKind = "timeout"
)

// ExtractionError is returned by the extraction client. It is always a
// per-item, recoverable failure; the batch pipeline records it against the
// offending item only.
type ExtractionError struct {
	Kind ExtractionErrorKind
	Ref  string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s) for %s: %v", e.Kind, e.Ref, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s) for %s", e.Kind, e.Ref)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationCode identifies which rule a raw extraction broke.
type ValidationCode string

const (
	InvalidCategory  ValidationCode = "invalid_category"
	InvalidSentiment ValidationCode = "invalid_sentiment"
	InvalidStatus    ValidationCode = "invalid_status"
	MissingField     ValidationCode = "missing_field"
	InvalidMetadata  ValidationCode = "invalid_metadata"
)

// ValidationError reports the specific offending field. The record is never
// partially accepted; one ValidationError means the whole record is refused.
type ValidationError struct {
	Field  string
	Code   ValidationCode
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q (%s): %s", e.Field, e.Code, e.Reason)
}

// CommitError reports records that failed to persist. It carries the exact
// records so the caller can retry them; the pipelines never retry writes
// themselves.
type CommitError struct {
	Records []*CallRecord
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit failed for %d record(s): %v", len(e.Records), e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// UnparsableSQLError means the gate could not establish that the input is a
// single SELECT statement. Fail closed: unparsable is never executed.
type UnparsableSQLError struct {
	Reason string
}

func (e *UnparsableSQLError) Error() string {
	return fmt.Sprintf("unparsable sql: %s", e.Reason)
}

// RejectedSQLError means the statement parsed but broke a read-only rule.
type RejectedSQLError struct {
	Reason string
}

func (e *RejectedSQLError) Error() string {
	return fmt.Sprintf("sql rejected: %s", e.Reason)
}
