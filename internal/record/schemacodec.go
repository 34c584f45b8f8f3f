package record

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// Delimiter separates fields in both metadata and data files.
const Delimiter = ":|"

// EncodeSchema renders one "name:|type" line per column, no header.
func EncodeSchema(s Schema) []byte {
	var b bytes.Buffer
	for _, c := range s.Cols {
		b.WriteString(c.Name)
		b.WriteString(Delimiter)
		b.WriteString(c.Type.String())
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// DecodeSchema parses a metadata record. Blank lines are skipped.
func DecodeSchema(data []byte) (Schema, error) {
	var cols []Column
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		parts := strings.Split(line, Delimiter)
		if len(parts) != 2 {
			return Schema{}, fmt.Errorf("%w: metadata line %d: %q", ErrBadSchema, lineNo, line)
		}
		typ, err := ParseType(parts[1])
		if err != nil {
			return Schema{}, fmt.Errorf("metadata line %d: %w", lineNo, err)
		}
		cols = append(cols, Column{Name: strings.TrimSpace(parts[0]), Type: typ})
	}
	if err := sc.Err(); err != nil {
		return Schema{}, err
	}
	if len(cols) == 0 {
		return Schema{}, fmt.Errorf("%w: metadata has no columns", ErrBadSchema)
	}
	return Schema{Cols: cols}, nil
}
