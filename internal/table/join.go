package table

import (
	"fmt"
	"strings"
)

// JoinKey pairs a left column with the right column it matches.
type JoinKey struct {
	Left  string
	Right string
}

// SharedKeys returns the columns present in both tables, in left order.
func SharedKeys(left, right *Table) []JoinKey {
	var out []JoinKey
	for _, c := range left.cols {
		if right.Has(c) {
			out = append(out, JoinKey{Left: c, Right: c})
		}
	}
	return out
}

// OuterJoin combines left and right on keys, keeping every row of both.
// Left rows come first, each followed by its matches; right rows without a
// partner follow in their own order. Columns are the left columns followed
// by the right columns that are not join keys; unmatched cells are Empty.
func OuterJoin(left, right *Table, keys []JoinKey) (*Table, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("outer join: no join columns")
	}
	li := make([]int, len(keys))
	ri := make([]int, len(keys))
	rightKey := make(map[int]bool, len(keys))
	for k, jk := range keys {
		l, ok := left.index[jk.Left]
		if !ok {
			return nil, fmt.Errorf("outer join: left table has no column %q", jk.Left)
		}
		r, ok := right.index[jk.Right]
		if !ok {
			return nil, fmt.Errorf("outer join: right table has no column %q", jk.Right)
		}
		li[k], ri[k] = l, r
		rightKey[r] = true
	}

	out := New(left.cols...)
	var rightCols []int
	var rightDest []int
	for i, c := range right.cols {
		if rightKey[i] {
			continue
		}
		rightCols = append(rightCols, i)
		rightDest = append(rightDest, out.addCol(c))
	}

	byKey := make(map[string][]int, len(right.rows))
	for r, row := range right.rows {
		k := joinKey(row, ri)
		byKey[k] = append(byKey[k], r)
	}

	matched := make([]bool, len(right.rows))
	width := len(out.cols)
	for _, lrow := range left.rows {
		partners := byKey[joinKey(lrow, li)]
		if len(partners) == 0 {
			row := make([]Value, width)
			copy(row, lrow)
			out.rows = append(out.rows, row)
			continue
		}
		for _, p := range partners {
			matched[p] = true
			row := make([]Value, width)
			copy(row, lrow)
			for j, src := range rightCols {
				row[rightDest[j]] = right.rows[p][src]
			}
			out.rows = append(out.rows, row)
		}
	}
	for p, rrow := range right.rows {
		if matched[p] {
			continue
		}
		row := make([]Value, width)
		for k := range keys {
			row[li[k]] = rrow[ri[k]]
		}
		for j, src := range rightCols {
			row[rightDest[j]] = rrow[src]
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

func joinKey(row []Value, idx []int) string {
	var b strings.Builder
	for _, i := range idx {
		b.WriteString(row[i].key())
		b.WriteByte(0)
	}
	return b.String()
}
