package executor

import (
	"fmt"
	"strings"
)

type Kind uint8

const (
	Status Kind = iota
	Printed
	Buffered
)

func (k Kind) String() string {
	switch k {
	case Printed:
		return "printed"
	case Buffered:
		return "buffered"
	default:
		return "status"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "printed":
		*k = Printed
	case "buffered":
		*k = Buffered
	case "status", "":
		*k = Status
	default:
		return fmt.Errorf("executor: unknown result kind %q", b)
	}
	return nil
}

// Result is the generic query result returned to the caller.
type Result struct {
	Kind    Kind       `json:"kind"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	Message string     `json:"message,omitempty"`

	// For DML:
	AffectedRows int64 `json:"affected_rows"`

	// For COMMIT: one entry per replayed command.
	Outcomes []StatementOutcome `json:"outcomes,omitempty"`
}

// StatementOutcome is the result of one buffered command applied on COMMIT.
type StatementOutcome struct {
	Index     int       `json:"index"`
	SQL       string    `json:"sql"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"error_kind,omitempty"`
}

func (o StatementOutcome) Failed() bool { return o.Error != "" }

// Lines renders r as printable text: for a select, a header of the selected
// column names and one line per row, cells joined by a single space.
func (r *Result) Lines() []string {
	if r == nil {
		return nil
	}
	switch r.Kind {
	case Printed:
		out := make([]string, 0, len(r.Rows)+1)
		out = append(out, strings.Join(r.Columns, " "))
		for _, row := range r.Rows {
			out = append(out, strings.Join(row, " "))
		}
		return out
	default:
		var out []string
		for _, o := range r.Outcomes {
			if o.Failed() {
				out = append(out, fmt.Sprintf("[%d] error: %s", o.Index, o.Error))
				continue
			}
			for _, l := range o.Result.Lines() {
				out = append(out, fmt.Sprintf("[%d] %s", o.Index, l))
			}
		}
		if r.Message != "" {
			out = append(out, r.Message)
		}
		return out
	}
}
