package repl

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/flatsql/internal/catalog"
	"github.com/tuannm99/flatsql/internal/history"
	"github.com/tuannm99/flatsql/internal/record"
	"github.com/tuannm99/flatsql/internal/sql/executor"
	"github.com/tuannm99/flatsql/internal/storage"
)

func newSession(t *testing.T, opts Options) (*Session, *bytes.Buffer) {
	t.Helper()
	cat, err := catalog.Open(storage.NewStore(memfs.New()), record.PlainCodec{}, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	opts.Out = &out
	if opts.Tables == nil {
		opts.Tables = cat.Tables
	}
	return NewSession(executor.NewExecutor(cat, executor.Options{}), opts), &out
}

func TestSession_RoundTrip(t *testing.T) {
	s, out := newSession(t, Options{})

	assert.True(t, s.Handle("CREATE TABLE users (id int, name varchar(10))"))
	assert.True(t, s.Handle("INSERT INTO users VALUES (1, 'Bob');"))
	out.Reset()

	s.Handle("SELECT * FROM users")
	assert.Equal(t, "id name\n1 Bob\n(1 rows)\n", out.String())
}

func TestSession_ErrorsAreRendered(t *testing.T) {
	s, out := newSession(t, Options{})
	s.Handle("CREATE TABLE users (id int)")
	out.Reset()

	assert.True(t, s.Handle("INSERT INTO users VALUES (abc)"))
	assert.True(t, strings.HasPrefix(out.String(), "Error: "))
	assert.Contains(t, out.String(), "id")
}

func TestSession_TransactionPrompt(t *testing.T) {
	s, out := newSession(t, Options{})
	s.Handle("CREATE TABLE t (a int)")
	assert.Equal(t, PromptIdle, s.Prompt())

	s.Handle("begin transaction")
	assert.Equal(t, PromptTxn, s.Prompt())

	out.Reset()
	s.Handle("INSERT INTO t VALUES (1)")
	assert.Equal(t, "Queued for transaction (1 pending).\n", out.String())

	out.Reset()
	s.Handle("COMMIT")
	assert.Equal(t, PromptIdle, s.Prompt())
	assert.Equal(t, "[1] Data inserted into table t.\nCommitted 1 of 1 command(s).\n", out.String())
}

func TestSession_Quit(t *testing.T) {
	s, _ := newSession(t, Options{})
	for _, q := range []string{`\q`, "quit", "EXIT", "X", " x "} {
		assert.False(t, s.Handle(q), q)
	}
	assert.True(t, s.Handle(""))
}

func TestSession_Meta(t *testing.T) {
	s, out := newSession(t, Options{})
	s.Handle("CREATE TABLE b (a int)")
	s.Handle("CREATE TABLE a (a int)")

	out.Reset()
	s.Handle(`\tables`)
	assert.Equal(t, "a\nb\n", out.String())

	out.Reset()
	s.Handle(`\history 1`)
	assert.Equal(t, "    2  CREATE TABLE a (a int)\n", out.String())

	out.Reset()
	s.Handle(`\log`)
	assert.Contains(t, out.String(), "not recorded")

	out.Reset()
	s.Handle(`\nope`)
	assert.Equal(t, "unknown command: \\nope\n", out.String())

	out.Reset()
	s.Handle(`\help`)
	assert.Contains(t, out.String(), "BEGIN TRANSACTION")
}

type stubRecorder struct {
	entries []history.Entry
	err     error
}

func (r stubRecorder) Record(string) (string, error) { return "", nil }

func (r stubRecorder) Log(int) ([]history.Entry, error) { return r.entries, r.err }

func TestSession_Log(t *testing.T) {
	when := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s, out := newSession(t, Options{Recorder: stubRecorder{entries: []history.Entry{
		{ID: "0123456789abcdef", Message: "INSERT INTO t VALUES (1)\n", When: when},
	}}})

	s.Handle(`\log 5`)
	assert.Equal(t, "01234567 2024-05-01 10:00:00 INSERT INTO t VALUES (1)\n", out.String())

	s2, out2 := newSession(t, Options{Recorder: stubRecorder{err: errors.New("boom")}})
	s2.Handle(`\log`)
	assert.Equal(t, "Error: boom\n", out2.String())
}

func TestHistory_PersistAndLoad(t *testing.T) {
	fs := memfs.New()
	h := NewHistory(fs, "home/.flatsql_history")

	require.NoError(t, h.Append("SELECT *\n  FROM t"))
	require.NoError(t, h.Append("   "))
	require.NoError(t, h.Append("COMMIT"))

	data, err := util.ReadFile(fs, "home/.flatsql_history")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t\nCOMMIT\n", string(data))

	h2 := NewHistory(fs, "home/.flatsql_history")
	require.NoError(t, h2.Load(1))
	assert.Equal(t, []string{"COMMIT"}, h2.Lines())

	missing := NewHistory(fs, "nowhere")
	require.NoError(t, missing.Load(0))
	assert.Empty(t, missing.Lines())
}
