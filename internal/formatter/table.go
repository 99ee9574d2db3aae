// Package formatter renders baton's human-readable CLI output.
package formatter

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Table collects rows and renders them as aligned columns under a header
// and a dashed separator. Nothing is written until Render.
type Table struct {
	out      io.Writer
	headers  []string
	rows     [][]string
	maxWidth map[int]int
}

// NewTable creates a table with the given column headers.
func NewTable(out io.Writer, headers ...string) *Table {
	return &Table{
		out:      out,
		headers:  headers,
		maxWidth: make(map[int]int),
	}
}

// SetMaxWidth caps the display width of column col (0-indexed). Longer
// values are cut and end in "...".
func (t *Table) SetMaxWidth(col, width int) *Table {
	t.maxWidth[col] = width
	return t
}

// AddRow appends a row. Values beyond the header count are dropped and
// missing ones are left blank.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	for i := range row {
		if i < len(values) {
			row[i] = Truncate(values[i], t.maxWidth[i])
		}
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of rows added.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table. An empty table writes nothing.
func (t *Table) Render() error {
	if len(t.rows) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(t.out, 0, 0, 2, ' ', 0)

	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", len(h))
	}

	//nolint:errcheck // tabwriter buffers; Flush reports the error
	fmt.Fprintln(w, strings.Join(t.headers, "\t"))
	//nolint:errcheck // tabwriter buffers; Flush reports the error
	fmt.Fprintln(w, strings.Join(sep, "\t"))
	for _, row := range t.rows {
		//nolint:errcheck // tabwriter buffers; Flush reports the error
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

// Fields renders "Label:  value" pairs with the values aligned.
type Fields struct {
	out   io.Writer
	pairs [][2]string
}

// NewFields creates an empty field list.
func NewFields(out io.Writer) *Fields {
	return &Fields{out: out}
}

// Add appends a labelled value. Values are formatted with %v.
func (f *Fields) Add(label string, value any) *Fields {
	f.pairs = append(f.pairs, [2]string{label, fmt.Sprint(value)})
	return f
}

// Render writes the fields.
func (f *Fields) Render() error {
	w := tabwriter.NewWriter(f.out, 0, 0, 2, ' ', 0)
	for _, p := range f.pairs {
		//nolint:errcheck // tabwriter buffers; Flush reports the error
		fmt.Fprintf(w, "%s:\t%s\n", p[0], p[1])
	}
	return w.Flush()
}

// Truncate shortens s to max bytes, ending in "..." when there is room.
// A max of zero or less leaves s alone.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// Heading writes a title underlined with "=".
func Heading(out io.Writer, title string) {
	//nolint:errcheck // CLI output, errors unlikely and non-recoverable
	fmt.Fprintf(out, "%s\n%s\n\n", title, strings.Repeat("=", len([]rune(title))))
}
