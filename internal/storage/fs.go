package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-billy/v6/util"
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

type Mode string

const (
	Disk   Mode = "disk"
	Memory Mode = "memory"
)

// Store is a storage directory. Every call opens and closes its own handle;
// nothing is held between calls.
type Store struct {
	fs   billy.Filesystem
	root string
}

func NewStore(fs billy.Filesystem) *Store {
	return &Store{fs: fs, root: fs.Root()}
}

// Open returns a Store for dir. Disk mode creates dir if missing.
func Open(mode Mode, dir string) (*Store, error) {
	switch mode {
	case Disk:
		if err := os.MkdirAll(dir, FileMode0755); err != nil {
			return nil, fmt.Errorf("storage: create dir %s: %w", dir, err)
		}
		return NewStore(osfs.New(dir)), nil
	case Memory:
		return NewStore(memfs.New()), nil
	default:
		return nil, fmt.Errorf("storage: unsupported mode %q", mode)
	}
}

func (s *Store) Root() string { return s.root }

func (s *Store) Exists(name string) (bool, error) {
	_, err := s.fs.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// CreateExclusive creates an empty file, failing with os.ErrExist if it is there.
func (s *Store) CreateExclusive(name string) error {
	f, err := s.fs.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, FileMode0644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (s *Store) WriteFile(name string, data []byte) error {
	return util.WriteFile(s.fs, name, data, FileMode0644)
}

func (s *Store) ReadFile(name string) ([]byte, error) {
	return util.ReadFile(s.fs, name)
}

func (s *Store) Remove(name string) error {
	return s.fs.Remove(name)
}

// AppendLine appends line plus '\n' to an existing file.
func (s *Store) AppendLine(name, line string) (err error) {
	f, err := s.fs.OpenFile(name, os.O_APPEND|os.O_WRONLY, FileMode0644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = f.Write([]byte(line + "\n"))
	return err
}

// ScanLines calls fn for every line of name, in file order, without the
// line terminator. Lines have no length limit.
func (s *Store) ScanLines(name string, fn func(line string) error) error {
	f, err := s.fs.Open(name)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *Store) CountLines(name string) (int, error) {
	n := 0
	err := s.ScanLines(name, func(string) error {
		n++
		return nil
	})
	return n, err
}

// List returns the sorted names of regular files in the root ending in suffix.
func (s *Store) List(suffix string) ([]string, error) {
	entries, err := s.fs.ReadDir("/")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), suffix) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}
