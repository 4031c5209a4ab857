package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown backend, format or catalog kind.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNoActiveProfile indicates no session profile has been selected.
	ErrNoActiveProfile = errors.New("no active profile")

	// ErrNothingLoaded indicates the metadata graph is empty.
	ErrNothingLoaded = errors.New("no metadata loaded")

	// ErrIntegrity is matched by every IntegrityError.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrMalformedConfig is matched by every MalformedConfigError.
	ErrMalformedConfig = errors.New("malformed configuration")
)

// NetworkError reports a failed transfer from a remote archive or backend.
// Temporary errors may be retried with backoff.
type NetworkError struct {
	Locator    string
	StatusCode int
	Temporary  bool
	Err        error
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	b.WriteString("network error fetching ")
	b.WriteString(e.Locator)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IntegrityError reports a digest mismatch between downloaded content and
// the expected checksum. The content is never cached.
type IntegrityError struct {
	Locator   string
	Algorithm string
	Expected  string
	Actual    string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed for %s: expected %s %s, got %s",
		e.Locator, e.Algorithm, e.Expected, e.Actual)
}

func (e *IntegrityError) Is(target error) bool { return target == ErrIntegrity }

// NotFoundError reports a locator that does not resolve.
type NotFoundError struct {
	Locator    string
	StatusCode int
}

func (e *NotFoundError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("not found: %s (HTTP %d)", e.Locator, e.StatusCode)
	}
	return "not found: " + e.Locator
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// MalformedConfigError reports an invalid release configuration.
type MalformedConfigError struct {
	// Descriptor is the offending descriptor identifier, if known.
	Descriptor string

	// Reason describes what is wrong.
	Reason string
}

func (e *MalformedConfigError) Error() string {
	if e.Descriptor != "" {
		return fmt.Sprintf("malformed configuration: descriptor %q: %s", e.Descriptor, e.Reason)
	}
	return "malformed configuration: " + e.Reason
}

func (e *MalformedConfigError) Is(target error) bool { return target == ErrMalformedConfig }

// ParseError reports a metadata document that could not be decoded.
// Line is 0 when the decoder does not expose line information; Offset is
// the approximate byte position reached when decoding failed.
type ParseError struct {
	Document string
	Line     int
	Offset   int64
	Err      error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("parse %s: line %d: %v", e.Document, e.Line, e.Err)
	case e.Offset > 0:
		return fmt.Sprintf("parse %s: near byte %d: %v", e.Document, e.Offset, e.Err)
	default:
		return fmt.Sprintf("parse %s: %v", e.Document, e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

// QueryErrorKind separates caller bugs from backend outages.
type QueryErrorKind int

const (
	// QuerySyntax means the query text was rejected. Not retryable.
	QuerySyntax QueryErrorKind = iota

	// QueryBackendUnavailable means the backend could not be reached. Retryable.
	QueryBackendUnavailable
)

// String returns the string representation.
func (k QueryErrorKind) String() string {
	switch k {
	case QuerySyntax:
		return "syntax"
	case QueryBackendUnavailable:
		return "backend unavailable"
	default:
		return "unknown"
	}
}

// QueryError reports a failed metadata query.
type QueryError struct {
	Kind    QueryErrorKind
	Backend string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query error (%s): %v", e.Backend, e.Kind, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// StateError reports an operation attempted in the wrong session state.
type StateError struct {
	Operation string
	Reason    error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s: %v", e.Operation, e.Reason)
}

func (e *StateError) Unwrap() error { return e.Reason }

// ItemError is a single failure inside a batch operation.
type ItemError struct {
	// ID names the document path, descriptor id or locator that failed.
	ID  string
	Err error
}

// BatchError collects per-item failures of a batch load or materialize.
// Items not listed succeeded.
type BatchError struct {
	Op       string
	Total    int
	Failures []ItemError
}

func (e *BatchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d failed", e.Op, len(e.Failures), e.Total)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "\n  %s: %v", f.ID, f.Err)
	}
	return b.String()
}

// Unwrap exposes every item error to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// NewBatchError returns nil when there are no failures.
func NewBatchError(op string, total int, failures []ItemError) error {
	if len(failures) == 0 {
		return nil
	}
	return &BatchError{Op: op, Total: total, Failures: failures}
}

// IsTransient reports whether err is worth retrying with backoff.
func IsTransient(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Temporary
	}
	var qErr *QueryError
	if errors.As(err, &qErr) {
		return qErr.Kind == QueryBackendUnavailable
	}
	return false
}

// IsQuerySyntax reports whether err is a rejected query.
func IsQuerySyntax(err error) bool {
	var qErr *QueryError
	return errors.As(err, &qErr) && qErr.Kind == QuerySyntax
}

// IsFatal reports whether err must not be retried: integrity failures,
// malformed configurations, missing artifacts and rejected queries.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrIntegrity) || errors.Is(err, ErrMalformedConfig) ||
		errors.Is(err, ErrNotFound) || IsQuerySyntax(err)
}
