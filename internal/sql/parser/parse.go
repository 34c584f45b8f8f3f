package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/tuannm99/flatsql/internal/record"
)

var (
	ErrIncomplete  = errors.New("unsupported or incomplete query")
	ErrUnsupported = errors.New("unsupported query type")
	ErrSyntax      = errors.New("syntax error")
)

// MinTokens is the grammar's first rule: every non-control statement has at
// least four whitespace-separated tokens, even a well-formed shorter one.
const MinTokens = 4

// parseIdent validates a table identifier: exactly one token made of
// letters, digits and '_' that does not start with a digit.
func parseIdent(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: missing identifier", ErrSyntax)
	}
	if !record.IsIdent(s) {
		return "", fmt.Errorf("%w: invalid identifier %q", ErrSyntax, s)
	}
	return s, nil
}

func normalize(sql string) string {
	s := strings.TrimSpace(sql)
	s = strings.TrimSuffix(s, ";")
	return strings.TrimSpace(s)
}

// ParseControl recognizes BEGIN TRANSACTION, COMMIT and ROLLBACK,
// case-insensitively, with an optional trailing ';'.
func ParseControl(sql string) (Statement, bool) {
	switch strings.Join(strings.Fields(strings.ToUpper(normalize(sql))), " ") {
	case "BEGIN TRANSACTION":
		return &BeginStmt{}, true
	case "COMMIT":
		return &CommitStmt{}, true
	case "ROLLBACK":
		return &RollbackStmt{}, true
	}
	return nil, false
}

// Parse parses a single statement into an AST.
func Parse(sql string) (Statement, error) {
	if stmt, ok := ParseControl(sql); ok {
		return stmt, nil
	}

	s := normalize(sql)
	if len(strings.Fields(s)) < MinTokens {
		return nil, ErrIncomplete
	}

	verb, rest := nextWord(s)
	switch strings.ToUpper(verb) {
	case "CREATE":
		return parseCreateTable(rest)
	case "INSERT":
		return parseInsert(rest)
	case "SELECT":
		return parseSelect(rest)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, verb)
	}
}

// "CREATE TABLE users (id int, name varchar(10))"
func parseCreateTable(rest string) (Statement, error) {
	rest, err := expectKeyword(rest, "TABLE")
	if err != nil {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: %w", err)
	}

	word, defs := nextWord(rest)
	name, err := parseIdent(word)
	if err != nil {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: %w", err)
	}

	defs = strings.TrimSpace(defs)
	if !strings.HasPrefix(defs, "(") || !strings.HasSuffix(defs, ")") {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: %w: expected column list in parentheses", ErrSyntax)
	}
	schema, err := record.ParseColumnDefs(defs)
	if err != nil {
		return nil, fmt.Errorf("invalid CREATE TABLE syntax: %w", err)
	}

	return &CreateTableStmt{TableName: name, Schema: schema}, nil
}

// "INSERT INTO users VALUES (1, 'abc')"
func parseInsert(rest string) (Statement, error) {
	rest, err := expectKeyword(rest, "INTO")
	if err != nil {
		return nil, fmt.Errorf("invalid INSERT syntax: %w", err)
	}

	word, rest := nextWord(rest)
	name, err := parseIdent(word)
	if err != nil {
		return nil, fmt.Errorf("invalid INSERT syntax: %w", err)
	}

	valPart, err := expectKeyword(rest, "VALUES")
	if err != nil {
		return nil, fmt.Errorf("invalid INSERT syntax: %w", err)
	}
	valPart = strings.TrimSpace(valPart)
	if !strings.HasPrefix(valPart, "(") || !strings.HasSuffix(valPart, ")") {
		return nil, fmt.Errorf("invalid INSERT values syntax: %w", ErrSyntax)
	}
	valPart = valPart[1 : len(valPart)-1]

	var values []string
	for _, rv := range splitComma(valPart) {
		values = append(values, strings.TrimSpace(rv))
	}

	return &InsertStmt{TableName: name, Values: values}, nil
}

// "SELECT * FROM users" or "SELECT a,b FROM users"
func parseSelect(rest string) (Statement, error) {
	colPart, tablePart := splitKeyword(" "+strings.Join(strings.Fields(rest), " "), "FROM")
	if strings.TrimSpace(tablePart) == "" {
		return nil, fmt.Errorf("invalid SELECT syntax: %w: expected FROM <table>", ErrSyntax)
	}

	name, err := parseIdent(tablePart)
	if err != nil {
		return nil, fmt.Errorf("invalid SELECT syntax: %w", err)
	}

	colPart = strings.TrimSpace(colPart)
	if colPart == "*" {
		return &SelectStmt{TableName: name, Star: true}, nil
	}

	cols := []string{}
	for _, c := range strings.Split(colPart, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("invalid SELECT syntax: %w: empty column list", ErrSyntax)
	}
	return &SelectStmt{TableName: name, Columns: cols}, nil
}

// nextWord returns the first word of s and the remainder. A word ends at
// whitespace or at '(' so that "users(id int)" yields "users".
func nextWord(s string) (string, string) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	if end < 0 {
		return s, ""
	}
	return s[:end], s[end:]
}

func expectKeyword(s, keyword string) (string, error) {
	word, rest := nextWord(s)
	if !strings.EqualFold(word, keyword) {
		return "", fmt.Errorf("%w: expected %s, got %q", ErrSyntax, keyword, word)
	}
	return rest, nil
}

// splitKeyword splits "X <keyword> Y" case-insensitively.
// returns (X, Y). If keyword not present => (s, "").
func splitKeyword(s, keyword string) (string, string) {
	up := strings.ToUpper(s)
	k := " " + strings.ToUpper(keyword) + " "
	idx := strings.Index(up, k)
	if idx < 0 {
		return s, ""
	}
	left := strings.TrimSpace(s[:idx])
	right := strings.TrimSpace(s[idx+len(k):])
	return left, right
}

// splitComma splits a comma-separated list, ignoring commas inside quotes (simple version).
func splitComma(s string) []string {
	parts := []string{}
	cur := strings.Builder{}
	inQuote := false
	for _, r := range s {
		switch r {
		case '\'':
			inQuote = !inQuote
			cur.WriteRune(r)
		case ',':
			if inQuote {
				cur.WriteRune(r)
			} else {
				parts = append(parts, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}
