package domain

import (
	"errors"
	"fmt"
)

// ErrorKind names a rejection class in logs and summaries.
type ErrorKind string

const (
	KindMalformedDate       ErrorKind = "malformed_date"
	KindSchemaViolation     ErrorKind = "schema_violation"
	KindSemanticViolation   ErrorKind = "semantic_violation"
	KindDuplicateResponse   ErrorKind = "duplicate_response"
	KindExternalCallFailure ErrorKind = "external_call_failure"
)

var (
	ErrMalformedDate       = errors.New("malformed date")
	ErrSchemaViolation     = errors.New("schema violation")
	ErrSemanticViolation   = errors.New("semantic violation")
	ErrDuplicateResponse   = errors.New("duplicate response")
	ErrExternalCallFailure = errors.New("external call failure")
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrMalformedDate, KindMalformedDate},
	{ErrSchemaViolation, KindSchemaViolation},
	{ErrSemanticViolation, KindSemanticViolation},
	{ErrDuplicateResponse, KindDuplicateResponse},
	{ErrExternalCallFailure, KindExternalCallFailure},
}

// AllKinds lists every rejection kind in reporting order.
func AllKinds() []ErrorKind {
	out := make([]ErrorKind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.kind)
	}
	return out
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// Violation builds a kind-typed error from a plain reason.
func Violation(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf maps an error to its rejection kind; unknown errors count as external failures.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindExternalCallFailure
}
