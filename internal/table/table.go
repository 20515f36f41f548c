// Package table holds the in-memory survey table the pipeline mutates in place.
package table

import (
	"fmt"
	"slices"
	"sort"

	"github.com/paulmach/orb"
)

// Table is an ordered set of named columns over rows of cells. Rows are always
// as wide as the column list; cells that were never set are Empty.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]Value

	// one point per row while the table carries geometry
	geom []orb.Point
}

func New(cols ...string) *Table {
	t := &Table{index: make(map[string]int, len(cols))}
	for _, c := range cols {
		t.addCol(c)
	}
	return t
}

func (t *Table) addCol(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.cols = append(t.cols, name)
	t.index[name] = len(t.cols) - 1
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], Empty())
	}
	return len(t.cols) - 1
}

func (t *Table) Columns() []string { return slices.Clone(t.cols) }
func (t *Table) NumRows() int      { return len(t.rows) }
func (t *Table) NumCols() int      { return len(t.cols) }

func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// HasAll reports whether every named column exists.
func (t *Table) HasAll(cols []string) bool {
	for _, c := range cols {
		if !t.Has(c) {
			return false
		}
	}
	return true
}

func (t *Table) ColIndex(col string) (int, bool) {
	i, ok := t.index[col]
	return i, ok
}

// Row returns the backing slice of row i.
func (t *Table) Row(i int) []Value { return t.rows[i] }

func (t *Table) Cell(row int, col string) Value {
	i, ok := t.index[col]
	if !ok {
		return Empty()
	}
	return t.rows[row][i]
}

func (t *Table) Set(row int, col string, v Value) {
	i := t.addCol(col)
	t.rows[row][i] = v
}

// AppendRow adds a row, padding or truncating to the column count.
func (t *Table) AppendRow(vals []Value) {
	row := make([]Value, len(t.cols))
	copy(row, vals)
	t.rows = append(t.rows, row)
	if t.geom != nil {
		t.geom = append(t.geom, orb.Point{})
	}
}

func (t *Table) Column(col string) ([]Value, error) {
	i, ok := t.index[col]
	if !ok {
		return nil, fmt.Errorf("column %q not found", col)
	}
	out := make([]Value, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// SetConstant adds the column if missing and sets every row to v.
func (t *Table) SetConstant(col string, v Value) {
	i := t.addCol(col)
	for _, row := range t.rows {
		row[i] = v
	}
}

// SetColumn adds or replaces a column; vals must have one entry per row.
func (t *Table) SetColumn(col string, vals []Value) error {
	if len(vals) != len(t.rows) {
		return fmt.Errorf("column %q: %d values for %d rows", col, len(vals), len(t.rows))
	}
	i := t.addCol(col)
	for r, row := range t.rows {
		row[i] = vals[r]
	}
	return nil
}

// DropColumns removes the named columns; absent names are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[int]bool, len(names))
	for _, n := range names {
		if i, ok := t.index[n]; ok {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	keep := make([]int, 0, len(t.cols)-len(drop))
	for i := range t.cols {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	t.project(keep)
}

func (t *Table) project(keep []int) {
	cols := make([]string, len(keep))
	index := make(map[string]int, len(keep))
	for j, i := range keep {
		cols[j] = t.cols[i]
		index[cols[j]] = j
	}
	for r, row := range t.rows {
		nr := make([]Value, len(keep))
		for j, i := range keep {
			nr[j] = row[i]
		}
		t.rows[r] = nr
	}
	t.cols, t.index = cols, index
}

// Filter keeps rows for which keep returns true, together with their geometry.
func (t *Table) Filter(keep func(i int, row []Value) bool) {
	rows := t.rows[:0]
	var geom []orb.Point
	if t.geom != nil {
		geom = make([]orb.Point, 0, len(t.geom))
	}
	for i, row := range t.rows {
		if !keep(i, row) {
			continue
		}
		rows = append(rows, row)
		if t.geom != nil {
			geom = append(geom, t.geom[i])
		}
	}
	clear(t.rows[len(rows):])
	t.rows = rows
	t.geom = geom
}

// Skip drops the first n rows when n > 0 and the last -n rows when n < 0.
func (t *Table) Skip(n int) {
	total := len(t.rows)
	switch {
	case n > 0:
		n = min(n, total)
		t.Filter(func(i int, _ []Value) bool { return i >= n })
	case n < 0:
		cut := max(total+n, 0)
		t.Filter(func(i int, _ []Value) bool { return i < cut })
	}
}

// SortBy reorders rows by col; the sort is stable so ties keep load order.
func (t *Table) SortBy(col string, desc bool) error {
	ci, ok := t.index[col]
	if !ok {
		return fmt.Errorf("column %q not found", col)
	}
	perm := make([]int, len(t.rows))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		c := Compare(t.rows[perm[a]][ci], t.rows[perm[b]][ci])
		if desc {
			return c > 0
		}
		return c < 0
	})
	rows := make([][]Value, len(perm))
	var geom []orb.Point
	if t.geom != nil {
		geom = make([]orb.Point, len(perm))
	}
	for i, p := range perm {
		rows[i] = t.rows[p]
		if geom != nil {
			geom[i] = t.geom[p]
		}
	}
	t.rows, t.geom = rows, geom
	return nil
}

func (t *Table) Clone() *Table {
	c := &Table{
		cols:  slices.Clone(t.cols),
		index: make(map[string]int, len(t.index)),
		rows:  make([][]Value, len(t.rows)),
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	for i, row := range t.rows {
		c.rows[i] = slices.Clone(row)
	}
	if t.geom != nil {
		c.geom = slices.Clone(t.geom)
	}
	return c
}

func (t *Table) HasGeometry() bool { return t.geom != nil }

// Geometry returns the per-row points, or nil when the table carries none.
func (t *Table) Geometry() []orb.Point { return t.geom }

func (t *Table) SetGeometry(pts []orb.Point) error {
	if pts != nil && len(pts) != len(t.rows) {
		return fmt.Errorf("geometry: %d points for %d rows", len(pts), len(t.rows))
	}
	t.geom = pts
	return nil
}

func (t *Table) DropGeometry() { t.geom = nil }
