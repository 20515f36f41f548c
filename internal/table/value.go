package table

import (
	"math"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

type Kind uint8

const (
	KindEmpty Kind = iota
	KindBool
	KindNumber
	KindText
)

// Value is a single cell. The zero value is Empty, which serializes as "".
type Value struct {
	kind Kind
	s    string
	n    float64
	b    bool
}

func Empty() Value            { return Value{} }
func Text(s string) Value     { return Value{kind: KindText, s: s} }
func Number(f float64) Value  { return Value{kind: KindNumber, n: f} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// Literal turns a directive literal into a value: "true"/"false" in any case
// become booleans, everything else stays text.
func Literal(s string) Value {
	switch strings.ToLower(s) {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	return Text(s)
}

// Float coerces the value to a number. Text is parsed; Empty and
// unparseable text report ok=false.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindText:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.s), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// BoolValue returns the boolean payload; ok is false for other kinds.
func (v Value) BoolValue() (b, ok bool) {
	return v.b, v.kind == KindBool
}

func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.s
	case KindNumber:
		return FormatNumber(v.n)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	}
	return ""
}

// Any returns the Go value used when the cell is embedded in a result record.
func (v Value) Any() any {
	switch v.kind {
	case KindText:
		return v.s
	case KindNumber:
		return v.n
	case KindBool:
		return v.b
	}
	return ""
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.s == o.s
	case KindNumber:
		return v.n == o.n || (math.IsNaN(v.n) && math.IsNaN(o.n))
	case KindBool:
		return v.b == o.b
	}
	return true
}

// key is a hashable identity for grouping and joining
func (v Value) key() string {
	switch v.kind {
	case KindText:
		return "s" + v.s
	case KindNumber:
		if math.IsNaN(v.n) {
			return "nNaN"
		}
		return "n" + strconv.FormatFloat(v.n, 'g', -1, 64)
	case KindBool:
		if v.b {
			return "bT"
		}
		return "bF"
	}
	return "e"
}

// Compare orders values as Empty < Bool < Number < Text, then naturally within a kind.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindText:
		return strings.Compare(a.s, b.s)
	case KindNumber:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		case math.IsNaN(a.n) && !math.IsNaN(b.n):
			return 1
		case !math.IsNaN(a.n) && math.IsNaN(b.n):
			return -1
		}
		return 0
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	}
	return 0
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.s)
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return []byte("null"), nil
		}
		return strconv.AppendFloat(nil, v.n, 'f', -1, 64), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	}
	return []byte(`""`), nil
}

// FormatNumber renders a float the way Python's str(float) does for the
// magnitudes found in survey data: integral values keep a ".0" suffix and
// non-finite values print as nan/inf.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		digits := strings.TrimLeft(exp[1:], "0")
		if len(digits) < 2 {
			digits = strings.Repeat("0", 2-len(digits)) + digits
		}
		return mant + "e" + string(sign) + digits
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
