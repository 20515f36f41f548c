package table

import (
	"fmt"
	"strings"
)

// Directive adds a constant column after loading.
type Directive struct {
	Name  string
	Value Value
}

// ParseDirectives reads "name:value,name2:value2". Values stay literal:
// true/false become booleans and everything else is text.
func ParseDirectives(s string) ([]Directive, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []Directive
	for part := range strings.SplitSeq(s, ",") {
		name, val, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("column directive %q: want name:value", part)
		}
		if strings.Contains(val, ":") {
			return nil, fmt.Errorf("column directive %q: more than one ':'", part)
		}
		if name == "" {
			return nil, fmt.Errorf("column directive %q: empty name", part)
		}
		out = append(out, Directive{Name: name, Value: Literal(val)})
	}
	return out, nil
}

// Apply sets each directive as a constant column, replacing any column of
// the same name.
func Apply(t *Table, ds []Directive) {
	for _, d := range ds {
		t.SetConstant(d.Name, d.Value)
	}
}
