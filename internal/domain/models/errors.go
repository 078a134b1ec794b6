package models

import (
	"errors"
	"fmt"
)

var (
	ErrShapeMismatch     = errors.New("shape mismatch")
	ErrUnordered         = errors.New("timestamps not in chronological order")
	ErrNonFinite         = errors.New("non-finite value")
	ErrDegenerateScale   = errors.New("degenerate scale: zero variance")
	ErrLengthMismatch    = errors.New("label/series length mismatch")
	ErrExternalQuery     = errors.New("external query failure")
	ErrArticleValidation = errors.New("article validation failure")
	ErrInvalidCoin       = errors.New("invalid coin id")
)

// Shape dimensions reported by ShapeMismatchError.
const (
	DimMissing = "missing"
	DimRows    = "rows"
	DimColumns = "columns"
)

// ShapeMismatchError names which field and dimension of a chart is malformed.
type ShapeMismatchError struct {
	Field     string
	Dimension string
	Row       int
	Got       int
	Want      int
}

func (e *ShapeMismatchError) Error() string {
	switch e.Dimension {
	case DimMissing:
		return fmt.Sprintf("shape mismatch: %s is missing", e.Field)
	case DimColumns:
		return fmt.Sprintf("shape mismatch: %s row %d has %d columns, want %d", e.Field, e.Row, e.Got, e.Want)
	default:
		return fmt.Sprintf("shape mismatch: %s has %d rows, want %d", e.Field, e.Got, e.Want)
	}
}

func (e *ShapeMismatchError) Unwrap() error { return ErrShapeMismatch }

// QueryError describes why an event query for a date was treated as failed.
type QueryError struct {
	Date   AnomalyDate
	Reason string
	Err    error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("event query %s: %s: %v", e.Date, e.Reason, e.Err)
	}
	return fmt.Sprintf("event query %s: %s", e.Date, e.Reason)
}

func (e *QueryError) Is(target error) bool { return target == ErrExternalQuery }

func (e *QueryError) Unwrap() error { return e.Err }
