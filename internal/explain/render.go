package explain

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"github.com/xlab/treeprint"
)

// Renderer writes explain trees as styled text.
type Renderer struct {
	styleHeader lipgloss.Style
	styleBold   lipgloss.Style
	stylePlain  lipgloss.Style
}

// NewRenderer returns a renderer. With color false the output carries no
// escape sequences.
func NewRenderer(color bool) *Renderer {
	r := lipgloss.NewRenderer(io.Discard)
	if color {
		r.SetColorProfile(termenv.ANSI)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Renderer{
		styleHeader: r.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("7")),
		styleBold:   r.NewStyle().Bold(true),
		stylePlain:  r.NewStyle(),
	}
}

// Render writes e and its descendants to w.
func (r *Renderer) Render(w io.Writer, e Entry) error {
	var b strings.Builder
	r.entry(&b, e)
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) entry(b *strings.Builder, e Entry) {
	b.WriteString(r.styleHeader.Render(" " + e.Name + " "))
	b.WriteByte('\n')

	if e.Description != "" {
		b.WriteByte('\n')
		b.WriteString(e.Description)
		b.WriteByte('\n')
	}

	if len(e.Table.Columns) > 0 && len(e.Table.Rows) > 0 {
		b.WriteByte('\n')
		b.WriteString(r.table(e.Table))
		b.WriteByte('\n')
	}

	for _, child := range e.Children {
		b.WriteByte('\n')
		r.entry(b, child)
	}

	b.WriteByte('\n')
}

func (r *Renderer) table(t Table) string {
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = Reconcile(row, len(t.Columns))
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(true).
		BorderStyle(r.stylePlain).
		Headers(t.Columns...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.styleBold
			}
			return r.stylePlain
		}).
		Render()
}

// Outline writes only the names of e and its descendants as a tree.
func Outline(w io.Writer, e Entry) error {
	tree := treeprint.NewWithRoot(e.Name)
	addChildren(tree, e.Children)
	_, err := io.WriteString(w, tree.String())
	return err
}

func addChildren(tree treeprint.Tree, children []Entry) {
	for _, c := range children {
		if len(c.Children) == 0 {
			tree.AddNode(c.Name)
			continue
		}
		addChildren(tree.AddBranch(c.Name), c.Children)
	}
}
