package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CreateExclusive(t *testing.T) {
	s := NewStore(memfs.New())

	ok, err := s.Exists("t.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CreateExclusive("t.txt"))
	ok, err = s.Exists("t.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	err = s.CreateExclusive("t.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrExist))
}

func TestStore_AppendAndScan(t *testing.T) {
	s := NewStore(memfs.New())
	require.NoError(t, s.CreateExclusive("t.txt"))

	require.NoError(t, s.AppendLine("t.txt", "a"))
	require.NoError(t, s.AppendLine("t.txt", "b"))

	var lines []string
	require.NoError(t, s.ScanLines("t.txt", func(l string) error {
		lines = append(lines, l)
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, lines)

	n, err := s.CountLines("t.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_ScanLongAndUnterminatedLines(t *testing.T) {
	s := NewStore(memfs.New())
	long := strings.Repeat("x", 17<<20)
	require.NoError(t, s.WriteFile("t.txt", []byte("a\r\n"+long+"\n\nlast")))

	var lines []string
	require.NoError(t, s.ScanLines("t.txt", func(l string) error {
		lines = append(lines, l)
		return nil
	}))
	require.Len(t, lines, 4)
	assert.Equal(t, "a", lines[0])
	assert.Len(t, lines[1], len(long))
	assert.Equal(t, "", lines[2])
	assert.Equal(t, "last", lines[3])
}

func TestStore_AppendMissingFile(t *testing.T) {
	s := NewStore(memfs.New())
	require.Error(t, s.AppendLine("nope.txt", "x"))
}

func TestStore_List(t *testing.T) {
	s := NewStore(memfs.New())
	require.NoError(t, s.WriteFile("b.metadata.txt", []byte("x:|int\n")))
	require.NoError(t, s.WriteFile("a.metadata.txt", []byte("x:|int\n")))
	require.NoError(t, s.WriteFile("a.txt", nil))

	names, err := s.List(".metadata.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.metadata.txt", "b.metadata.txt"}, names)
}

func TestOpen_DiskCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "user", "db")
	s, err := Open(Disk, dir)
	require.NoError(t, err)

	require.NoError(t, s.WriteFile("t.txt", []byte("1:|Bob\n")))
	_, err = os.Stat(filepath.Join(dir, "t.txt"))
	require.NoError(t, err)

	_, err = Open("tape", dir)
	require.Error(t, err)
}
