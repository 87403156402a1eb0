package stats

import (
	"fmt"
	"strings"
)

// tablePrinter renders fixed-width tables framed with '-' and '|'.
type tablePrinter struct {
	columns []string
	widths  []int
}

func newTablePrinter(columns []string, widths []int) *tablePrinter {
	return &tablePrinter{columns: columns, widths: widths}
}

func (p *tablePrinter) separator() string {
	total := 1
	for _, w := range p.widths {
		total += w + 3
	}
	return strings.Repeat("-", total)
}

func (p *tablePrinter) row(values []string) string {
	var b strings.Builder
	b.WriteString("|")
	for i, w := range p.widths {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		if len(v) > w {
			v = v[:w]
		}
		fmt.Fprintf(&b, " %-*s |", w, v)
	}
	return b.String()
}

func (p *tablePrinter) render(rows [][]string) []string {
	sep := p.separator()
	lines := []string{sep, p.row(p.columns), sep}
	for _, r := range rows {
		lines = append(lines, p.row(r))
	}
	return append(lines, sep)
}
