package record

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

var (
	ErrUnknownType = errors.New("record: unknown column type")
	ErrBadSchema   = errors.New("record: malformed column definitions")
)

type Kind uint8

const (
	KindInt Kind = iota + 1
	KindVarchar
)

// TypeTag is a column's declared type. MaxLen is only meaningful for varchar.
type TypeTag struct {
	Kind   Kind
	MaxLen int
}

func Int() TypeTag { return TypeTag{Kind: KindInt} }

func Varchar(n int) TypeTag { return TypeTag{Kind: KindVarchar, MaxLen: n} }

func (t TypeTag) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindVarchar:
		return fmt.Sprintf("varchar(%d)", t.MaxLen)
	default:
		return "unknown"
	}
}

// ParseType accepts "int" or "varchar(n)" with n > 0, case-insensitive.
func ParseType(s string) (TypeTag, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	if t == "int" {
		return Int(), nil
	}
	if strings.HasPrefix(t, "varchar(") && strings.HasSuffix(t, ")") {
		n, err := strconv.Atoi(t[len("varchar(") : len(t)-1])
		if err != nil || n <= 0 {
			return TypeTag{}, fmt.Errorf("%w: %q (varchar size must be a positive integer)", ErrUnknownType, s)
		}
		return Varchar(n), nil
	}
	return TypeTag{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

type Column struct {
	Name string  `json:"name"`
	Type TypeTag `json:"type"`
}

// Schema is positional: the i-th stored field of every row belongs to Cols[i].
type Schema struct {
	Cols []Column
}

func (s Schema) NumCols() int { return len(s.Cols) }

func (s Schema) Names() []string {
	out := make([]string, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = c.Name
	}
	return out
}

// IsIdent reports whether s is a plain identifier: a letter or '_' followed
// by letters, digits or '_'.
func IsIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !unicode.IsLetter(r) && r != '_' {
				return false
			}
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}

// ParseColumnDefs turns the raw DDL column list, e.g. "(id int, name varchar(10))",
// into a Schema. Only the text between the first '(' and the last ')' is used.
// Every entry must be exactly "<name> <type>".
func ParseColumnDefs(raw string) (Schema, error) {
	open := strings.Index(raw, "(")
	closing := strings.LastIndex(raw, ")")
	if open < 0 || closing <= open {
		return Schema{}, fmt.Errorf("%w: expected (<name> <type>, ...)", ErrBadSchema)
	}

	body := strings.TrimSpace(raw[open+1 : closing])
	if body == "" {
		return Schema{}, fmt.Errorf("%w: empty column list", ErrBadSchema)
	}

	var cols []Column
	for _, def := range strings.Split(body, ",") {
		parts := strings.Fields(def)
		if len(parts) != 2 {
			return Schema{}, fmt.Errorf("%w: column def %q", ErrBadSchema, strings.TrimSpace(def))
		}
		if !IsIdent(parts[0]) {
			return Schema{}, fmt.Errorf("%w: invalid column name %q", ErrBadSchema, parts[0])
		}
		typ, err := ParseType(parts[1])
		if err != nil {
			return Schema{}, err
		}
		cols = append(cols, Column{Name: parts[0], Type: typ})
	}
	return Schema{Cols: cols}, nil
}
