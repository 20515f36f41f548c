package table

import (
	"fmt"
	"sort"
)

// Group is one distinct value of a grouping column and the rows holding it.
type Group struct {
	Key  Value
	Rows []int
}

// GroupBy partitions rows on col. Groups come in first-appearance order, or
// in ascending key order when sorted is set.
func (t *Table) GroupBy(col string, sorted bool) ([]Group, error) {
	ci, ok := t.index[col]
	if !ok {
		return nil, fmt.Errorf("column %q not found", col)
	}
	pos := make(map[string]int)
	var groups []Group
	for r, row := range t.rows {
		k := row[ci].key()
		g, seen := pos[k]
		if !seen {
			g = len(groups)
			pos[k] = g
			groups = append(groups, Group{Key: row[ci]})
		}
		groups[g].Rows = append(groups[g].Rows, r)
	}
	if sorted {
		sort.SliceStable(groups, func(a, b int) bool {
			return Compare(groups[a].Key, groups[b].Key) < 0
		})
	}
	return groups, nil
}

// Distinct returns the distinct values of col in first-appearance order.
func (t *Table) Distinct(col string) ([]Value, error) {
	groups, err := t.GroupBy(col, false)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(groups))
	for i, g := range groups {
		out[i] = g.Key
	}
	return out, nil
}
