package tsplib

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Match them with errors.Is.
var (
	ErrMalformedHeader      = errors.New("tsplib: malformed header")
	ErrMalformedSection     = errors.New("tsplib: malformed section data")
	ErrMissingRequiredField = errors.New("tsplib: missing required field")
	ErrDimensionMismatch    = errors.New("tsplib: dimension mismatch")
	ErrUnsupportedFeature   = errors.New("tsplib: unsupported feature")
	ErrIndexingAmbiguity    = errors.New("tsplib: ambiguous index base")
	ErrMatrixConstruction   = errors.New("tsplib: matrix construction failed")
	ErrDuplicateIndex       = errors.New("tsplib: duplicate node index")
)

// ParseError carries one of the kinds above plus whatever location and
// count context was available when it was raised.
type ParseError struct {
	Kind    error
	Keyword string
	Section string
	Line    int
	Value   string

	// Expected and Actual are set for count or dimension errors.
	Expected int
	Actual   int
	HasCount bool

	Err error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Keyword != "" {
		fmt.Fprintf(&b, ": keyword %s", e.Keyword)
	}
	if e.Section != "" {
		fmt.Fprintf(&b, ": section %s", e.Section)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, ": value %q", e.Value)
	}
	if e.HasCount {
		fmt.Fprintf(&b, ": expected %d, got %d", e.Expected, e.Actual)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func headerError(kind error, keyword string, line int, value string, cause error) *ParseError {
	return &ParseError{Kind: kind, Keyword: keyword, Line: line, Value: value, Err: cause}
}

func sectionError(kind error, section string, line int, value string, cause error) *ParseError {
	return &ParseError{Kind: kind, Section: section, Line: line, Value: value, Err: cause}
}

func countError(kind error, where string, expected, actual int) *ParseError {
	return &ParseError{Kind: kind, Section: where, Expected: expected, Actual: actual, HasCount: true}
}

func missing(keyword string) *ParseError {
	return &ParseError{Kind: ErrMissingRequiredField, Keyword: keyword}
}
