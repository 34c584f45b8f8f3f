package parser

import "github.com/tuannm99/flatsql/internal/record"

// Statement is the root interface for all statements.
type Statement interface {
	stmtNode()
}

// ----- CREATE TABLE -----
type CreateTableStmt struct {
	TableName string
	Schema    record.Schema
}

func (*CreateTableStmt) stmtNode() {}

// ----- INSERT -----
type InsertStmt struct {
	TableName string
	// Values are trimmed but still raw: quotes are stripped during validation.
	Values []string
}

func (*InsertStmt) stmtNode() {}

// ----- SELECT -----
type SelectStmt struct {
	TableName string
	Star      bool
	Columns   []string // nil when Star
}

func (*SelectStmt) stmtNode() {}

// ----- transaction control -----
type BeginStmt struct{}

func (*BeginStmt) stmtNode() {}

type CommitStmt struct{}

func (*CommitStmt) stmtNode() {}

type RollbackStmt struct{}

func (*RollbackStmt) stmtNode() {}

// IsControl reports whether stmt is BEGIN, COMMIT or ROLLBACK.
func IsControl(stmt Statement) bool {
	switch stmt.(type) {
	case *BeginStmt, *CommitStmt, *RollbackStmt:
		return true
	}
	return false
}
