package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/flatsql/internal/record"
)

func TestParseControl(t *testing.T) {
	cases := map[string]Statement{
		"BEGIN TRANSACTION":        &BeginStmt{},
		"  begin   transaction ; ": &BeginStmt{},
		"commit":                   &CommitStmt{},
		"ROLLBACK;":                &RollbackStmt{},
	}
	for sql, want := range cases {
		got, ok := ParseControl(sql)
		require.True(t, ok, sql)
		assert.IsType(t, want, got, sql)
	}

	for _, sql := range []string{"COMMIT WORK", "BEGIN", "begin;"} {
		_, ok := ParseControl(sql)
		assert.False(t, ok, sql)
	}

	// bare BEGIN is an ordinary command, and too short
	_, err := Parse("BEGIN")
	require.ErrorIs(t, err, ErrIncomplete)
}

func TestParse_TooFewTokens(t *testing.T) {
	for _, sql := range []string{"", "SELECT * FROM", "INSERT INTO t", "DROP t"} {
		_, err := Parse(sql)
		require.ErrorIs(t, err, ErrIncomplete, sql)
	}
}

func TestParse_UnsupportedVerb(t *testing.T) {
	_, err := Parse("DELETE FROM users WHERE id=1")
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestParse_CreateTable(t *testing.T) {
	stmt, err := Parse("create table users (id INT,  name   varchar(10));")
	require.NoError(t, err)

	s, ok := stmt.(*CreateTableStmt)
	require.True(t, ok, "want *CreateTableStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
	assert.Equal(t, []record.Column{
		{Name: "id", Type: record.Int()},
		{Name: "name", Type: record.Varchar(10)},
	}, s.Schema.Cols)
}

func TestParse_CreateTable_NoSpaceBeforeParen(t *testing.T) {
	stmt, err := Parse("CREATE TABLE users(id int, age int)")
	require.NoError(t, err)
	assert.Equal(t, "users", stmt.(*CreateTableStmt).TableName)
}

func TestParse_CreateTable_Invalid(t *testing.T) {
	cases := []string{
		"CREATE TABEL users (id int)",
		"CREATE TABLE users ok (id int)",
		"CREATE TABLE 1users (id int)",
		"CREATE TABLE users id int, name int",
	}
	for _, sql := range cases {
		_, err := Parse(sql)
		require.ErrorIs(t, err, ErrSyntax, sql)
	}

	_, err := Parse("CREATE TABLE users (id float)")
	require.ErrorIs(t, err, record.ErrUnknownType)

	_, err = Parse("CREATE TABLE users (id int primary key)")
	require.ErrorIs(t, err, record.ErrBadSchema)
}

func TestParse_Insert(t *testing.T) {
	stmt, err := Parse("INSERT INTO users VALUES (1, 'Bob')")
	require.NoError(t, err)

	s, ok := stmt.(*InsertStmt)
	require.True(t, ok, "want *InsertStmt, got %T", stmt)
	assert.Equal(t, "users", s.TableName)
	assert.Equal(t, []string{"1", "'Bob'"}, s.Values)
}

func TestParse_Insert_SplitCommaInsideQuotes(t *testing.T) {
	stmt, err := Parse("insert into t values ('a,b', 2);")
	require.NoError(t, err)
	assert.Equal(t, []string{"'a,b'", "2"}, stmt.(*InsertStmt).Values)
}

func TestParse_Insert_Invalid(t *testing.T) {
	cases := []string{
		"INSERT users VALUES (1)",
		"INSERT INTO users ok VALUES (1)",
		"INSERT INTO users VALUES 1, 2",
	}
	for _, sql := range cases {
		_, err := Parse(sql)
		require.ErrorIs(t, err, ErrSyntax, sql)
	}
}

func TestParse_Select(t *testing.T) {
	stmt, err := Parse("SELECT * FROM users")
	require.NoError(t, err)
	s := stmt.(*SelectStmt)
	assert.True(t, s.Star)
	assert.Nil(t, s.Columns)
	assert.Equal(t, "users", s.TableName)

	stmt, err = Parse("select c,a from t;")
	require.NoError(t, err)
	s = stmt.(*SelectStmt)
	assert.False(t, s.Star)
	assert.Equal(t, []string{"c", "a"}, s.Columns)
	assert.Equal(t, "t", s.TableName)
}

func TestParse_Select_Invalid(t *testing.T) {
	cases := []string{
		"SELECT * INTO users x",
		"SELECT * FROM users WHERE id",
		"SELECT , FROM users x",
	}
	for _, sql := range cases {
		_, err := Parse(sql)
		require.ErrorIs(t, err, ErrSyntax, sql)
	}
}

func TestIsControl(t *testing.T) {
	assert.True(t, IsControl(&BeginStmt{}))
	assert.True(t, IsControl(&RollbackStmt{}))
	assert.False(t, IsControl(&SelectStmt{}))
}
