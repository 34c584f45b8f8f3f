package repl

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/tuannm99/flatsql/internal/sql/executor"
)

// Styles used when printing results. On a non-terminal writer lipgloss
// renders plain text.
type Styles struct {
	Header lipgloss.Style
	Error  lipgloss.Style
	Faint  lipgloss.Style
	Info   lipgloss.Style
}

func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Header: r.NewStyle().Bold(true),
		Error:  r.NewStyle().Foreground(lipgloss.Color("9")),
		Faint:  r.NewStyle().Faint(true),
		Info:   r.NewStyle().Foreground(lipgloss.Color("6")),
	}
}

// Render prints res in its text form.
func (st Styles) Render(w io.Writer, res *executor.Result) {
	if res == nil {
		return
	}
	switch res.Kind {
	case executor.Printed:
		lines := res.Lines()
		_, _ = fmt.Fprintln(w, st.Header.Render(lines[0]))
		for _, l := range lines[1:] {
			_, _ = fmt.Fprintln(w, l)
		}
		_, _ = fmt.Fprintln(w, st.Faint.Render(fmt.Sprintf("(%d rows)", len(res.Rows))))
	case executor.Buffered:
		_, _ = fmt.Fprintln(w, st.Faint.Render(res.Message))
	default:
		for _, o := range res.Outcomes {
			st.renderOutcome(w, o)
		}
		if res.Message != "" {
			_, _ = fmt.Fprintln(w, res.Message)
		}
	}
}

func (st Styles) renderOutcome(w io.Writer, o executor.StatementOutcome) {
	if o.Failed() {
		_, _ = fmt.Fprintln(w, st.Error.Render(fmt.Sprintf("[%d] error: %s", o.Index, o.Error)))
		return
	}
	for _, l := range o.Result.Lines() {
		_, _ = fmt.Fprintf(w, "[%d] %s\n", o.Index, l)
	}
}

func (st Styles) RenderError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, st.Error.Render("Error: "+err.Error()))
}
