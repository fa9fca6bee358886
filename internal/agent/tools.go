package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"dataagent/internal/dataset"
	"dataagent/internal/util"
)

// Tool is an action the model may take against the dataset.
type Tool interface {
	Name() string
	Description() string
	Call(ds *dataset.Dataset, input string) (string, error)
}

const (
	maxHeadRows      = 50
	maxListedGroups  = 200
	textChunkRunes   = 3000
	textChunkOverlap = 200
)

// DefaultTools returns the tools offered for ds. Document datasets get the
// text tools instead of the tabular ones.
func DefaultTools(ds *dataset.Dataset) []Tool {
	if ds.IsDocument() {
		return []Tool{readTextTool{}, searchTextTool{}}
	}
	return []Tool{schemaTool{}, headTool{}, aggregateTool{}, distinctTool{}, filterTool{}}
}

type schemaTool struct{}

func (schemaTool) Name() string { return "schema" }
func (schemaTool) Description() string {
	return "List every column with its type (number or text) and the row count. Input is ignored."
}

func (schemaTool) Call(ds *dataset.Dataset, _ string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "rows: %d\n", ds.Len())
	for i, c := range ds.Columns {
		fmt.Fprintf(&b, "%s: %s\n", c, columnType(ds, i))
	}
	return strings.TrimSpace(b.String()), nil
}

func columnType(ds *dataset.Dataset, col int) string {
	seen := false
	for r := range ds.Rows {
		v := ds.Cell(r, col)
		if !v.IsNum && v.Str == "" {
			continue
		}
		if !v.IsNum {
			return "text"
		}
		seen = true
	}
	if !seen {
		return "text"
	}
	return "number"
}

type headTool struct{}

func (headTool) Name() string { return "head" }
func (headTool) Description() string {
	return fmt.Sprintf("Show the first N rows (default 5, at most %d). Input: N.", maxHeadRows)
}

func (headTool) Call(ds *dataset.Dataset, input string) (string, error) {
	n := 5
	if s := strings.TrimSpace(input); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			return "", fmt.Errorf("head expects a positive row count, got %q", input)
		}
		n = v
	}
	if n > maxHeadRows {
		n = maxHeadRows
	}
	return formatRows(ds.Columns, ds.Sample(n)), nil
}

type aggregateTool struct{}

type aggregateInput struct {
	Op      string `json:"op"`
	Column  string `json:"column"`
	GroupBy string `json:"group_by"`
	Sort    string `json:"sort"`
	Limit   int    `json:"limit"`
}

func (aggregateTool) Name() string { return "aggregate" }
func (aggregateTool) Description() string {
	return `Aggregate a numeric column, optionally per group. Input: JSON {"op":"sum|avg|count|min|max","column":"sales","group_by":"region","sort":"desc|asc","limit":10}. "column" may be omitted for count.`
}

func (aggregateTool) Call(ds *dataset.Dataset, input string) (string, error) {
	var in aggregateInput
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return "", fmt.Errorf("aggregate expects a JSON object: %w", err)
	}
	groups, err := groupAndAggregate(ds, in)
	if err != nil {
		return "", err
	}
	if in.GroupBy == "" {
		return fmt.Sprintf(`{"%s":%s,"rows":%d}`, in.Op, formatNumber(groups[0].Value), groups[0].Count), nil
	}
	out := make([]map[string]any, 0, len(groups))
	for _, g := range groups {
		out = append(out, map[string]any{"group": g.Key, "value": g.Value, "rows": g.Count})
	}
	b, _ := json.Marshal(out)
	return string(b), nil
}

type distinctTool struct{}

func (distinctTool) Name() string { return "distinct" }
func (distinctTool) Description() string {
	return "List the distinct values of a column with how often each occurs, in order of first appearance. Input: the column name."
}

func (distinctTool) Call(ds *dataset.Dataset, input string) (string, error) {
	col, err := resolveColumn(ds, columnFromInput(input))
	if err != nil {
		return "", err
	}
	counts := map[string]int{}
	order := make([]string, 0)
	for r := range ds.Rows {
		key := ds.Cell(r, col).String()
		if _, ok := counts[key]; !ok {
			order = append(order, key)
		}
		counts[key]++
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d distinct values\n", len(order))
	for i, key := range order {
		if i == maxListedGroups {
			fmt.Fprintf(&b, "... %d more", len(order)-maxListedGroups)
			break
		}
		fmt.Fprintf(&b, "%s: %d\n", key, counts[key])
	}
	return strings.TrimSpace(b.String()), nil
}

// columnFromInput accepts a bare name or {"column": name}.
func columnFromInput(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "{") {
		var in struct {
			Column string `json:"column"`
		}
		if err := json.Unmarshal([]byte(input), &in); err == nil {
			return in.Column
		}
	}
	return input
}

type filterTool struct{}

type filterInput struct {
	Column string          `json:"column"`
	Op     string          `json:"op"`
	Value  json.RawMessage `json:"value"`
	Limit  int             `json:"limit"`
}

func (filterTool) Name() string { return "filter" }
func (filterTool) Description() string {
	return `Show rows where a column matches a condition. Input: JSON {"column":"region","op":"=|!=|>|>=|<|<=|contains","value":"north","limit":20}.`
}

func (filterTool) Call(ds *dataset.Dataset, input string) (string, error) {
	var in filterInput
	if err := json.Unmarshal([]byte(input), &in); err != nil {
		return "", fmt.Errorf("filter expects a JSON object: %w", err)
	}
	col, err := resolveColumn(ds, in.Column)
	if err != nil {
		return "", err
	}
	var target dataset.Value
	if err := json.Unmarshal(in.Value, &target); err != nil {
		return "", fmt.Errorf("filter value: %w", err)
	}
	match, err := matcher(in.Op, target)
	if err != nil {
		return "", err
	}
	limit := in.Limit
	if limit <= 0 || limit > maxHeadRows {
		limit = 20
	}
	rows := make([][]dataset.Value, 0, limit)
	total := 0
	for r := range ds.Rows {
		if !match(ds.Cell(r, col)) {
			continue
		}
		total++
		if len(rows) < limit {
			rows = append(rows, ds.Rows[r])
		}
	}
	return fmt.Sprintf("%d matching rows\n%s", total, formatRows(ds.Columns, rows)), nil
}

func matcher(op string, target dataset.Value) (func(dataset.Value) bool, error) {
	switch strings.TrimSpace(op) {
	case "", "=", "==":
		return func(v dataset.Value) bool { return compare(v, target) == 0 }, nil
	case "!=":
		return func(v dataset.Value) bool { return compare(v, target) != 0 }, nil
	case ">":
		return func(v dataset.Value) bool { return v.IsNum && target.IsNum && v.Num > target.Num }, nil
	case ">=":
		return func(v dataset.Value) bool { return v.IsNum && target.IsNum && v.Num >= target.Num }, nil
	case "<":
		return func(v dataset.Value) bool { return v.IsNum && target.IsNum && v.Num < target.Num }, nil
	case "<=":
		return func(v dataset.Value) bool { return v.IsNum && target.IsNum && v.Num <= target.Num }, nil
	case "contains":
		needle := strings.ToLower(target.String())
		return func(v dataset.Value) bool { return strings.Contains(strings.ToLower(v.String()), needle) }, nil
	default:
		return nil, fmt.Errorf("unknown filter op %q", op)
	}
}

func compare(a, b dataset.Value) int {
	if a.IsNum && b.IsNum {
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String()))
}

type readTextTool struct{}

func (readTextTool) Name() string { return "read_text" }
func (readTextTool) Description() string {
	return "Read the document text one chunk at a time. Input: the chunk number, starting at 1."
}

func (readTextTool) Call(ds *dataset.Dataset, input string) (string, error) {
	chunks := util.ChunkText(ds.Text(), textChunkRunes, textChunkOverlap)
	if len(chunks) == 0 {
		return "", util.ErrNoExtractableText
	}
	n := 1
	if s := strings.TrimSpace(input); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return "", fmt.Errorf("read_text expects a chunk number, got %q", input)
		}
		n = v
	}
	if n < 1 || n > len(chunks) {
		return "", fmt.Errorf("chunk %d out of range 1..%d", n, len(chunks))
	}
	return fmt.Sprintf("chunk %d of %d:\n%s", n, len(chunks), chunks[n-1]), nil
}

type searchTextTool struct{}

func (searchTextTool) Name() string { return "search_text" }
func (searchTextTool) Description() string {
	return "Find the sentences of the document most related to a phrase, in document order. Input: the phrase."
}

func (searchTextTool) Call(ds *dataset.Dataset, input string) (string, error) {
	hits := util.RelevantSentences(ds.Text(), input, 8)
	if len(hits) == 0 {
		return "no matching sentences", nil
	}
	return strings.Join(hits, "\n"), nil
}

func resolveColumn(ds *dataset.Dataset, name string) (int, error) {
	if strings.TrimSpace(name) == "" {
		return -1, fmt.Errorf("a column is required; columns are %s", strings.Join(ds.Columns, ", "))
	}
	idx, ok := ds.ColumnIndex(name)
	if !ok {
		return -1, fmt.Errorf("no column %q; columns are %s", name, strings.Join(ds.Columns, ", "))
	}
	return idx, nil
}

func formatRows(columns []string, rows [][]dataset.Value) string {
	var b strings.Builder
	b.WriteString(strings.Join(columns, " | "))
	for _, row := range rows {
		b.WriteString("\n")
		cells := make([]string, len(columns))
		for i := range columns {
			if i < len(row) {
				cells[i] = row[i].String()
			}
		}
		b.WriteString(strings.Join(cells, " | "))
	}
	return b.String()
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toolNames(tools []Tool) []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}
