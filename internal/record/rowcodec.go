package record

import (
	"fmt"
	"strings"
)

// RowCodec turns one row into one data-file line and back.
type RowCodec interface {
	Name() string
	Encode(values []string) string
	Decode(line string) []string
	// Storable reports whether value survives Encode on a single line.
	Storable(value string) bool
}

const (
	FormatPlain   = "plain"
	FormatEscaped = "escaped"
)

func CodecFor(format string) (RowCodec, error) {
	switch format {
	case "", FormatPlain:
		return PlainCodec{}, nil
	case FormatEscaped:
		return EscapedCodec{}, nil
	default:
		return nil, fmt.Errorf("record: unknown row format %q", format)
	}
}

// PlainCodec joins values with Delimiter and does no escaping: a value that
// contains the delimiter shifts every following field of its row.
type PlainCodec struct{}

func (PlainCodec) Name() string { return FormatPlain }

func (PlainCodec) Encode(values []string) string {
	return strings.Join(values, Delimiter)
}

// Decode keeps trailing empty fields.
func (PlainCodec) Decode(line string) []string {
	return strings.Split(line, Delimiter)
}

// Storable rejects line breaks: one data line is one row.
func (PlainCodec) Storable(value string) bool {
	return !strings.ContainsAny(value, "\r\n")
}

// EscapedCodec prefixes '\' and the ':' of an embedded delimiter with '\',
// and writes line breaks as \n and \r. Lines written by PlainCodec without
// backslashes decode identically.
type EscapedCodec struct{}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	Delimiter, `\`+Delimiter,
	"\n", `\n`,
	"\r", `\r`,
)

func (EscapedCodec) Name() string { return FormatEscaped }

func (EscapedCodec) Encode(values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = escaper.Replace(v)
	}
	return strings.Join(escaped, Delimiter)
}

func (EscapedCodec) Storable(string) bool { return true }

func (EscapedCodec) Decode(line string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line):
			i++
			switch line[i] {
			case 'n':
				cur.WriteByte('\n')
			case 'r':
				cur.WriteByte('\r')
			default:
				cur.WriteByte(line[i])
			}
		case c == Delimiter[0] && strings.HasPrefix(line[i:], Delimiter):
			out = append(out, cur.String())
			cur.Reset()
			i += len(Delimiter) - 1
		default:
			cur.WriteByte(c)
		}
	}
	return append(out, cur.String())
}
