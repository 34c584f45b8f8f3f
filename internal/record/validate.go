package record

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrTypeMismatch  = errors.New("record: type mismatch")
	ErrSizeExceeded  = errors.New("record: size exceeded")
	ErrArityMismatch = errors.New("record: invalid number of values")

	// ErrLineBreak is a type mismatch: the row format cannot keep the value
	// on one line.
	ErrLineBreak = fmt.Errorf("%w: line break in value", ErrTypeMismatch)
)

// ValidationError names the column and the value that failed.
type ValidationError struct {
	Column string
	Value  string
	Type   TypeTag
	Err    error
}

func (e *ValidationError) Error() string {
	switch {
	case errors.Is(e.Err, ErrSizeExceeded):
		return fmt.Sprintf("value %q exceeds size limit %d for column %s", e.Value, e.Type.MaxLen, e.Column)
	case errors.Is(e.Err, ErrLineBreak):
		return fmt.Sprintf("value %q for column %s contains a line break", e.Value, e.Column)
	}
	return fmt.Sprintf("type mismatch for column %s; expected %s, got %q", e.Column, e.Type, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NormalizeValue trims v and strips one leading and one trailing single quote.
func NormalizeValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "'")
	v = strings.TrimSuffix(v, "'")
	return v
}

// Validate checks a raw candidate value against col's declared type.
func Validate(value string, col Column) error {
	v := NormalizeValue(value)
	switch col.Type.Kind {
	case KindInt:
		if !isDigits(v) {
			return &ValidationError{Column: col.Name, Value: v, Type: col.Type, Err: ErrTypeMismatch}
		}
	case KindVarchar:
		if utf8.RuneCountInString(v) > col.Type.MaxLen {
			return &ValidationError{Column: col.Name, Value: v, Type: col.Type, Err: ErrSizeExceeded}
		}
	default:
		return fmt.Errorf("%w: column %s", ErrUnknownType, col.Name)
	}
	return nil
}

// ValidateRow checks arity first, then every value in schema order, stopping
// at the first failure. On success it returns the normalized values.
func ValidateRow(s Schema, raw []string) ([]string, error) {
	if len(raw) != s.NumCols() {
		return nil, fmt.Errorf("%w: got %d, table has %d columns", ErrArityMismatch, len(raw), s.NumCols())
	}
	out := make([]string, len(raw))
	for i, col := range s.Cols {
		if err := Validate(raw[i], col); err != nil {
			return nil, err
		}
		out[i] = NormalizeValue(raw[i])
	}
	return out, nil
}

// CheckStorable reports the first normalized value codec cannot write as
// part of a single line.
func CheckStorable(codec RowCodec, s Schema, values []string) error {
	for i, v := range values {
		if i < s.NumCols() && !codec.Storable(v) {
			col := s.Cols[i]
			return &ValidationError{Column: col.Name, Value: v, Type: col.Type, Err: ErrLineBreak}
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
