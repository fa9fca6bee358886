package agent

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"dataagent/internal/dataset"
)

type group struct {
	Key   string
	Rows  []int
	Value float64
	Count int
}

// groupAndAggregate groups rows in first-appearance order, aggregates each
// group, then sorts and limits.
func groupAndAggregate(ds *dataset.Dataset, in aggregateInput) ([]group, error) {
	op := strings.ToLower(strings.TrimSpace(in.Op))
	if op == "" {
		op = "sum"
	}
	in.Op = op
	measure := -1
	if op != "count" || strings.TrimSpace(in.Column) != "" {
		idx, err := resolveColumn(ds, in.Column)
		if err != nil {
			return nil, err
		}
		measure = idx
	}

	var groups []group
	if strings.TrimSpace(in.GroupBy) == "" {
		all := make([]int, len(ds.Rows))
		for i := range all {
			all[i] = i
		}
		groups = []group{{Key: "all", Rows: all}}
	} else {
		dim, err := resolveColumn(ds, in.GroupBy)
		if err != nil {
			return nil, err
		}
		groups = groupBy(ds, dim)
	}

	for i := range groups {
		if err := aggregateGroup(ds, &groups[i], measure, op); err != nil {
			return nil, err
		}
	}
	sortGroups(groups, in.Sort)
	limit := in.Limit
	if limit <= 0 || limit > maxListedGroups {
		limit = maxListedGroups
	}
	if len(groups) > limit {
		groups = groups[:limit]
	}
	return groups, nil
}

func groupBy(ds *dataset.Dataset, dim int) []group {
	index := map[string]int{}
	var groups []group
	for r := range ds.Rows {
		key := ds.Cell(r, dim).String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, group{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, r)
	}
	return groups
}

// aggregateGroup ignores non-numeric cells; Count is the number of rows that
// contributed.
func aggregateGroup(ds *dataset.Dataset, g *group, measure int, op string) error {
	if op == "count" {
		if measure < 0 {
			g.Count = len(g.Rows)
		} else {
			for _, r := range g.Rows {
				if v := ds.Cell(r, measure); v.IsNum || v.Str != "" {
					g.Count++
				}
			}
		}
		g.Value = float64(g.Count)
		return nil
	}

	sum, lo, hi := 0.0, math.Inf(1), math.Inf(-1)
	for _, r := range g.Rows {
		v := ds.Cell(r, measure)
		if !v.IsNum {
			continue
		}
		g.Count++
		sum += v.Num
		lo = math.Min(lo, v.Num)
		hi = math.Max(hi, v.Num)
	}
	if g.Count == 0 && len(g.Rows) > 0 {
		return fmt.Errorf("column %q has no numeric values", ds.Columns[measure])
	}
	switch op {
	case "sum":
		g.Value = sum
	case "avg", "mean":
		if g.Count > 0 {
			g.Value = sum / float64(g.Count)
		}
	case "min":
		if g.Count > 0 {
			g.Value = lo
		}
	case "max":
		if g.Count > 0 {
			g.Value = hi
		}
	default:
		return fmt.Errorf("unknown aggregate op %q; use sum, avg, count, min or max", op)
	}
	return nil
}

func sortGroups(groups []group, sortBy string) {
	switch strings.ToLower(strings.TrimSpace(sortBy)) {
	case "desc", "value_desc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value > groups[j].Value })
	case "asc", "value_asc":
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Value < groups[j].Value })
	case "label_asc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) < strings.ToLower(groups[j].Key) })
	case "label_desc":
		sort.SliceStable(groups, func(i, j int) bool { return strings.ToLower(groups[i].Key) > strings.ToLower(groups[j].Key) })
	}
}
