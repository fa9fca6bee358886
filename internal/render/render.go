// Package render turns an envelope into HTML: the answer text and at most one
// visual.
package render

import (
	"fmt"
	"html/template"
	"strings"

	"dataagent/internal/envelope"
)

// HTML renders the answer text (if any) followed by the visual chosen by
// envelope precedence.
func HTML(env envelope.Envelope) template.HTML {
	var b strings.Builder
	if env.Answer != nil {
		fmt.Fprintf(&b, `<p class="answer">%s</p>`, template.HTMLEscapeString(*env.Answer))
	}
	switch env.Visual() {
	case envelope.VisualBar:
		b.WriteString(string(BarSVG(*env.Bar)))
	case envelope.VisualLine:
		b.WriteString(string(LineSVG(*env.Line)))
	case envelope.VisualTable:
		b.WriteString(string(TableHTML(*env.Table)))
	}
	return template.HTML(b.String())
}

// TableHTML renders a grid in the given column order. Rows shorter than the
// header are padded with empty cells.
func TableHTML(t envelope.Table) template.HTML {
	var b strings.Builder
	b.WriteString(`<table class="result-table"><thead><tr>`)
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "<th>%s</th>", template.HTMLEscapeString(c))
	}
	b.WriteString("</tr></thead><tbody>")
	width := len(t.Columns)
	for _, row := range t.Data {
		b.WriteString("<tr>")
		n := len(row)
		if width > n {
			n = width
		}
		for i := 0; i < n; i++ {
			cell := ""
			if i < len(row) {
				cell = formatCell(row[i])
			}
			fmt.Fprintf(&b, "<td>%s</td>", template.HTMLEscapeString(cell))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return template.HTML(b.String())
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return formatNumber(x)
	default:
		return fmt.Sprint(x)
	}
}
