package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// cells read as missing, following the usual CSV NA markers
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSV parses delimited text with a header row. Each column is typed as a
// whole: numeric if every present cell parses as a float, boolean if every
// present cell is true/false, text otherwise. Missing cells are Empty.
func ReadCSV(r io.Reader) (*Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("read csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := headerNames(header)

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", len(records)+2, err)
		}
		if len(rec) == 1 && rec[0] == "" {
			continue
		}
		if len(rec) > len(cols) {
			return nil, fmt.Errorf("read csv line %d: %d fields, header has %d", len(records)+2, len(rec), len(cols))
		}
		records = append(records, rec)
	}

	t := New(cols...)
	t.rows = make([][]Value, len(records))
	for i := range records {
		t.rows[i] = make([]Value, len(cols))
	}
	for c := range cols {
		kind := inferKind(records, c)
		for r, rec := range records {
			t.rows[r][c] = parseCell(rec, c, kind)
		}
	}
	return t, nil
}

// headerNames names blank headers "Unnamed: i" and suffixes duplicates ".1", ".2", ...
func headerNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	for i, h := range header {
		if strings.TrimSpace(h) == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func cell(rec []string, c int) (string, bool) {
	if c >= len(rec) {
		return "", false
	}
	s := rec[c]
	if _, na := naValues[s]; na {
		return "", false
	}
	return s, true
}

func inferKind(records [][]string, c int) Kind {
	numeric, boolean, present := true, true, false
	for _, rec := range records {
		s, ok := cell(rec, c)
		if !ok {
			continue
		}
		present = true
		if numeric {
			if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
				numeric = false
			}
		}
		if boolean {
			switch strings.ToLower(s) {
			case "true", "false":
			default:
				boolean = false
			}
		}
		if !numeric && !boolean {
			return KindText
		}
	}
	switch {
	case !present:
		return KindEmpty
	case numeric:
		return KindNumber
	case boolean:
		return KindBool
	}
	return KindText
}

func parseCell(rec []string, c int, kind Kind) Value {
	s, ok := cell(rec, c)
	if !ok {
		return Empty()
	}
	switch kind {
	case KindNumber:
		f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return Number(f)
	case KindBool:
		return Bool(strings.EqualFold(s, "true"))
	}
	return Text(s)
}
