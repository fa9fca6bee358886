// Package dataset holds the in-memory table a session asks questions about
// and the readers that build it from uploaded files.
package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TextColumn is the single column of datasets built from documents.
const TextColumn = "text"

// Value is one cell. Numeric cells keep their parsed value so tools can
// aggregate them; everything else is kept as text.
type Value struct {
	Str   string
	Num   float64
	IsNum bool
}

func Text(s string) Value { return Value{Str: s} }

func Number(f float64) Value { return Value{Num: f, IsNum: true} }

// ParseValue classifies a raw cell.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Text("")
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && looksNumeric(s) {
		return Number(f)
	}
	return Text(s)
}

// looksNumeric rejects inputs ParseFloat accepts but users don't mean as numbers.
func looksNumeric(s string) bool {
	low := strings.ToLower(s)
	switch low {
	case "nan", "inf", "+inf", "-inf", "infinity", "+infinity", "-infinity":
		return false
	}
	return !strings.HasPrefix(low, "0x")
}

func (v Value) String() string {
	if v.IsNum {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Str
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNum {
		return json.Marshal(v.Num)
	}
	return json.Marshal(v.Str)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*v = Number(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("decode cell: %w", err)
	}
	*v = Text(s)
	return nil
}

// Dataset is a rows x named-columns table. It is not mutated after loading.
type Dataset struct {
	Name    string    `json:"name"`
	Kind    Kind      `json:"kind"`
	Sheet   string    `json:"sheet,omitempty"`
	Sheets  []string  `json:"sheets,omitempty"`
	Columns []string  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// FromText wraps extracted document text as a one-cell table.
func FromText(name string, kind Kind, text string) *Dataset {
	return &Dataset{
		Name:    name,
		Kind:    kind,
		Columns: []string{TextColumn},
		Rows:    [][]Value{{Text(text)}},
	}
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

func (d *Dataset) Empty() bool {
	return d == nil || len(d.Columns) == 0 || len(d.Rows) == 0
}

// IsDocument reports whether the table wraps document text.
func (d *Dataset) IsDocument() bool {
	return d != nil && len(d.Columns) == 1 && d.Columns[0] == TextColumn && d.Kind.IsDocument()
}

// Sample returns the first n rows, or all rows when there are fewer.
func (d *Dataset) Sample(n int) [][]Value {
	if d == nil {
		return nil
	}
	if n <= 0 || n >= len(d.Rows) {
		return d.Rows
	}
	return d.Rows[:n]
}

// ColumnIndex finds a column by name, ignoring case and surrounding space.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	for i, c := range d.Columns {
		if strings.ToLower(strings.TrimSpace(c)) == target {
			return i, true
		}
	}
	return -1, false
}

// Cell returns the value at row r, column c; short rows read as empty text.
func (d *Dataset) Cell(r, c int) Value {
	row := d.Rows[r]
	if c < 0 || c >= len(row) {
		return Text("")
	}
	return row[c]
}

// Text concatenates the text column of a document dataset.
func (d *Dataset) Text() string {
	if d == nil {
		return ""
	}
	idx, ok := d.ColumnIndex(TextColumn)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(d.Rows))
	for r := range d.Rows {
		parts = append(parts, d.Cell(r, idx).String())
	}
	return strings.Join(parts, "\n")
}

// Preview is the UI view of a dataset.
type Preview struct {
	Name     string     `json:"name"`
	Kind     Kind       `json:"kind"`
	Sheet    string     `json:"sheet,omitempty"`
	Sheets   []string   `json:"sheets,omitempty"`
	Columns  []string   `json:"columns"`
	RowCount int        `json:"row_count"`
	Rows     [][]string `json:"rows"`
}

func (d *Dataset) Preview(n int) Preview {
	sample := d.Sample(n)
	rows := make([][]string, 0, len(sample))
	for _, row := range sample {
		cells := make([]string, len(d.Columns))
		for i := range d.Columns {
			if i < len(row) {
				cells[i] = row[i].String()
			}
		}
		rows = append(rows, cells)
	}
	return Preview{
		Name:     d.Name,
		Kind:     d.Kind,
		Sheet:    d.Sheet,
		Sheets:   d.Sheets,
		Columns:  d.Columns,
		RowCount: len(d.Rows),
		Rows:     rows,
	}
}
