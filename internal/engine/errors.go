package engine

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes the failures a run can produce. Every code is scoped
// to a region or a document and collected into the RunResult; none aborts the
// run.
type ErrorCode string

const (
	// ErrCodeRead indicates the document could not be read.
	ErrCodeRead ErrorCode = "READ_ERROR"

	// ErrCodeParse indicates malformed or unmatched region markers.
	ErrCodeParse ErrorCode = "PARSE_ERROR"

	// ErrCodeUnknownDirective indicates a region directive with no
	// registered strategy.
	ErrCodeUnknownDirective ErrorCode = "UNKNOWN_DIRECTIVE"

	// ErrCodeStrategy indicates the strategy failed while evaluating a
	// payload.
	ErrCodeStrategy ErrorCode = "STRATEGY_ERROR"

	// ErrCodeCache indicates the durable cache backing was unavailable
	// for an entry this region needed.
	ErrCodeCache ErrorCode = "CACHE_ERROR"

	// ErrCodeWrite indicates the atomic rewrite failed.
	ErrCodeWrite ErrorCode = "WRITE_ERROR"
)

// RegionError is a structured, non-fatal error attributed to one document
// and, where applicable, one region within it.
type RegionError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path identifies the affected document.
	Path string

	// Directive names the region's strategy, when known.
	Directive string

	// Offset is the byte offset of the region in the document, or -1 for
	// document-level errors.
	Offset int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *RegionError) Error() string {
	if e.Directive != "" {
		return fmt.Sprintf("%s: %s (doc=%s, directive=%s, offset=%d)", e.Code, e.Message, e.Path, e.Directive, e.Offset)
	}
	return fmt.Sprintf("%s: %s (doc=%s)", e.Code, e.Message, e.Path)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *RegionError) Unwrap() error { return e.Err }

// hasCode reports whether err is a RegionError with the given code.
// Uses errors.As to handle wrapped errors.
func hasCode(err error, code ErrorCode) bool {
	var re *RegionError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsParseError returns true for malformed-marker errors.
func IsParseError(err error) bool { return hasCode(err, ErrCodeParse) }

// IsUnknownDirectiveError returns true for unresolvable directives.
func IsUnknownDirectiveError(err error) bool { return hasCode(err, ErrCodeUnknownDirective) }

// IsStrategyError returns true for payload evaluation failures.
func IsStrategyError(err error) bool { return hasCode(err, ErrCodeStrategy) }

// IsCacheError returns true for durable cache backing failures.
func IsCacheError(err error) bool { return hasCode(err, ErrCodeCache) }

// IsWriteError returns true for atomic rewrite failures.
func IsWriteError(err error) bool { return hasCode(err, ErrCodeWrite) }
