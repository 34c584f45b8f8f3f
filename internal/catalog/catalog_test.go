package catalog

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/flatsql/internal/record"
	"github.com/tuannm99/flatsql/internal/storage"
)

func usersSchema() record.Schema {
	return record.Schema{Cols: []record.Column{
		{Name: "id", Type: record.Int()},
		{Name: "name", Type: record.Varchar(10)},
	}}
}

func newTestCatalog(t *testing.T) (*Catalog, *storage.Store) {
	t.Helper()
	st := storage.NewStore(memfs.New())
	c, err := Open(st, record.PlainCodec{}, nil)
	require.NoError(t, err)
	return c, st
}

func TestCreateTable_Files(t *testing.T) {
	c, st := newTestCatalog(t)

	_, err := c.CreateTable("users", usersSchema())
	require.NoError(t, err)

	meta, err := st.ReadFile("users.metadata.txt")
	require.NoError(t, err)
	assert.Equal(t, "id:|int\nname:|varchar(10)\n", string(meta))

	n, err := st.CountLines("users.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, []string{"users"}, c.Tables())
}

// failingFS fails truncating writes and creation of files with a given suffix.
type failingFS struct {
	billy.Filesystem
	failTrunc  bool
	failSuffix string
}

func (f *failingFS) OpenFile(name string, flag int, perm os.FileMode) (billy.File, error) {
	if f.failTrunc && flag&os.O_TRUNC != 0 {
		return nil, errors.New("disk full")
	}
	if f.failSuffix != "" && strings.HasSuffix(name, f.failSuffix) && !strings.HasSuffix(name, MetaSuffix) {
		return nil, errors.New("disk full")
	}
	return f.Filesystem.OpenFile(name, flag, perm)
}

func TestCreateTable_FailureLeavesNameFree(t *testing.T) {
	fs := &failingFS{Filesystem: memfs.New(), failTrunc: true}
	st := storage.NewStore(fs)
	c, err := Open(st, nil, nil)
	require.NoError(t, err)

	_, err = c.CreateTable("users", usersSchema())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrTableExists)
	occupied, err := c.Occupied("users")
	require.NoError(t, err)
	assert.False(t, occupied, "metadata of the failed create is removed")

	fs.failTrunc, fs.failSuffix = false, DataSuffix
	_, err = c.CreateTable("users", usersSchema())
	require.Error(t, err)
	occupied, err = c.Occupied("users")
	require.NoError(t, err)
	assert.False(t, occupied)

	fs.failSuffix = ""
	_, err = c.CreateTable("users", usersSchema())
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, c.Tables())
}

func TestCreateTable_AlreadyExists(t *testing.T) {
	c, st := newTestCatalog(t)

	_, err := c.CreateTable("users", usersSchema())
	require.NoError(t, err)
	_, err = c.CreateTable("users", usersSchema())
	require.ErrorIs(t, err, ErrTableExists)

	// metadata without data file is also "exists"
	require.NoError(t, st.WriteFile("orphan.metadata.txt", []byte("a:|int\n")))
	_, err = c.CreateTable("orphan", usersSchema())
	require.ErrorIs(t, err, ErrTableExists)
}

func TestOpen_LoadsExistingTables(t *testing.T) {
	st := storage.NewStore(memfs.New())
	require.NoError(t, st.WriteFile("a.metadata.txt", []byte("x:|int\n")))
	require.NoError(t, st.WriteFile("a.txt", nil))
	require.NoError(t, st.WriteFile("broken.metadata.txt", []byte("garbage\n")))

	c, err := Open(st, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, c.Tables())

	s, err := c.Schema("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, s.Names())
}

func TestLookup_FallsBackToDisk(t *testing.T) {
	c, st := newTestCatalog(t)

	require.NoError(t, st.WriteFile("late.metadata.txt", []byte("x:|int\n")))
	require.NoError(t, st.WriteFile("late.txt", nil))

	meta, err := c.Lookup("late")
	require.NoError(t, err)
	assert.Equal(t, "late.txt", meta.DataFile)

	_, err = c.Lookup("ghost")
	require.ErrorIs(t, err, ErrTableNotFound)
}

func TestInsertRow(t *testing.T) {
	c, st := newTestCatalog(t)
	_, err := c.CreateTable("users", usersSchema())
	require.NoError(t, err)

	require.NoError(t, c.InsertRow("users", []string{"1", " 'Bob'"}))

	data, err := st.ReadFile("users.txt")
	require.NoError(t, err)
	assert.Equal(t, "1:|Bob\n", string(data))

	require.ErrorIs(t, c.InsertRow("users", []string{"abc", "'Bob'"}), record.ErrTypeMismatch)
	require.ErrorIs(t, c.InsertRow("users", []string{"1", "'LongerThanTen'"}), record.ErrSizeExceeded)
	require.ErrorIs(t, c.InsertRow("users", []string{"1"}), record.ErrArityMismatch)
	require.ErrorIs(t, c.InsertRow("nope", []string{"1"}), ErrTableNotFound)

	n, err := c.RowCount("users")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "rejected rows are never appended")
}

func TestInsertRow_LineBreak(t *testing.T) {
	c, st := newTestCatalog(t)
	_, err := c.CreateTable("users", usersSchema())
	require.NoError(t, err)

	err = c.InsertRow("users", []string{"1", "'a\nb'"})
	require.ErrorIs(t, err, record.ErrLineBreak)
	n, err := st.CountLines("users.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	esc, err := Open(st, record.EscapedCodec{}, nil)
	require.NoError(t, err)
	require.NoError(t, esc.InsertRow("users", []string{"1", "'a\nb'"}))

	n, err = st.CountLines("users.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "one insert is one stored line")

	_, rows, err := esc.SelectRows("users", nil)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "a\nb"}}, rows)
}

func TestProject_SchemaOrder(t *testing.T) {
	s := record.Schema{Cols: []record.Column{
		{Name: "a", Type: record.Int()},
		{Name: "b", Type: record.Int()},
		{Name: "c", Type: record.Int()},
	}}

	p := Project(s, []string{"c", "a", "zzz"})
	assert.Equal(t, []string{"a", "c"}, p.Names)
	assert.Equal(t, []int{0, 2}, p.Indexes)

	all := Project(s, nil)
	assert.Equal(t, []string{"a", "b", "c"}, all.Names)
}

func TestSelectRows_MalformedRow(t *testing.T) {
	c, st := newTestCatalog(t)
	_, err := c.CreateTable("users", usersSchema())
	require.NoError(t, err)

	require.NoError(t, st.AppendLine("users.txt", "1:| Bob "))
	require.NoError(t, st.AppendLine("users.txt", "2"))

	cols, rows, err := c.SelectRows("users", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)
	assert.Equal(t, [][]string{{"1", "Bob"}, {"2", Placeholder}}, rows)
}

func TestSelectRows_MissingData(t *testing.T) {
	c, st := newTestCatalog(t)

	_, _, err := c.SelectRows("users", nil)
	require.ErrorIs(t, err, ErrTableNotFound)

	require.NoError(t, st.WriteFile("users.metadata.txt", []byte("id:|int\n")))
	_, _, err = c.SelectRows("users", nil)
	require.ErrorIs(t, err, ErrTableNotFound)
}

func TestOccupied(t *testing.T) {
	c, st := newTestCatalog(t)

	ok, err := c.Occupied("users")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.WriteFile("users.metadata.txt", []byte("id:|int\n")))
	ok, err = c.Occupied("users")
	require.NoError(t, err)
	assert.True(t, ok)
}
