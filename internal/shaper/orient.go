package shaper

import (
	"strconv"

	"github.com/mohammed-shakir/survey-stats/internal/core/apperr"
	"github.com/mohammed-shakir/survey-stats/internal/table"
)

// Orientations accepted by Orient, after pandas' DataFrame.to_dict.
const (
	OrientRecords = "records"
	OrientList    = "list"
	OrientDict    = "dict"
	OrientIndex   = "index"
	OrientSplit   = "split"
)

// Orient shapes t for the data endpoint. The row index is positional.
func Orient(t *table.Table, orient string) (any, error) {
	cols := t.Columns()
	switch orient {
	case "", OrientRecords:
		out := make([]*Record, t.NumRows())
		for i := range out {
			out[i] = rowRecord(t, cols, i)
		}
		return out, nil

	case OrientList:
		out := NewOrdered[[]table.Value]()
		for _, c := range cols {
			vals, _ := t.Column(c)
			out.Set(c, vals)
		}
		return out, nil

	case OrientDict:
		out := NewOrdered[*Ordered[table.Value]]()
		for _, c := range cols {
			vals, _ := t.Column(c)
			byIndex := NewOrdered[table.Value]()
			for i, v := range vals {
				byIndex.Set(strconv.Itoa(i), v)
			}
			out.Set(c, byIndex)
		}
		return out, nil

	case OrientIndex:
		out := NewOrdered[*Record]()
		for i := range t.NumRows() {
			out.Set(strconv.Itoa(i), rowRecord(t, cols, i))
		}
		return out, nil

	case OrientSplit:
		index := make([]int, t.NumRows())
		data := make([][]table.Value, t.NumRows())
		for i := range index {
			index[i] = i
			data[i] = t.Row(i)
		}
		out := NewRecord()
		out.Set("index", index)
		out.Set("columns", cols)
		out.Set("data", data)
		return out, nil
	}
	return nil, apperr.Param("orient", "unknown orientation %q", orient)
}

func rowRecord(t *table.Table, cols []string, i int) *Record {
	rec := NewRecord()
	row := t.Row(i)
	for c, name := range cols {
		rec.Set(name, row[c])
	}
	return rec
}
