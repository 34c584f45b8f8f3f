package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v6"
)

// History is the REPL's command history file, one command per line.
type History struct {
	fs    billy.Filesystem
	name  string
	lines []string
}

// NewHistory keeps history in name on fs. A nil fs disables persistence.
func NewHistory(fs billy.Filesystem, name string) *History {
	return &History{fs: fs, name: name}
}

// Load reads the file, keeping at most max lines (0 keeps all).
func (h *History) Load(max int) error {
	if h.fs == nil || h.name == "" {
		return nil
	}
	f, err := h.fs.Open(h.name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		h.lines = append(h.lines, s)
		if max > 0 && len(h.lines) > max {
			h.lines = h.lines[len(h.lines)-max:]
		}
	}
	return sc.Err()
}

// Append records one command, collapsed to a single line.
func (h *History) Append(cmd string) error {
	cmd = compactOneLine(cmd)
	if cmd == "" {
		return nil
	}
	h.lines = append(h.lines, cmd)

	if h.fs == nil || h.name == "" {
		return nil
	}
	if dir := path.Dir(h.name); dir != "." && dir != "/" {
		if err := h.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	f, err := h.fs.OpenFile(h.name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = fmt.Fprintln(f, cmd)
	return err
}

func (h *History) Lines() []string { return h.lines }

// Print writes the last n entries, numbered. n <= 0 prints everything.
func (h *History) Print(w io.Writer, last int) {
	if last <= 0 || last > len(h.lines) {
		last = len(h.lines)
	}
	start := len(h.lines) - last
	for i := start; i < len(h.lines); i++ {
		_, _ = fmt.Fprintf(w, "%5d  %s\n", i+1, h.lines[i])
	}
}

func compactOneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
