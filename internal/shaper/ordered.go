// Package shaper turns tables and calculation output into the JSON the API returns.
package shaper

import (
	"bytes"
	"math"

	"github.com/goccy/go-json"
)

// Ordered is a string-keyed map that encodes as a JSON object in insertion order.
type Ordered[V any] struct {
	keys []string
	m    map[string]V
}

// Record is one output row or object.
type Record = Ordered[any]

// Metrics maps metric names to their values for one target column.
type Metrics = Ordered[any]

// Result maps each target column to its metrics.
type Result = Ordered[*Metrics]

func NewOrdered[V any]() *Ordered[V] {
	return &Ordered[V]{m: map[string]V{}}
}

func NewRecord() *Record   { return NewOrdered[any]() }
func NewMetrics() *Metrics { return NewOrdered[any]() }
func NewResult() *Result   { return NewOrdered[*Metrics]() }

// Set stores v under k. A new key goes last; an existing key keeps its place.
func (o *Ordered[V]) Set(k string, v V) *Ordered[V] {
	if o.m == nil {
		o.m = map[string]V{}
	}
	if _, ok := o.m[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.m[k] = v
	return o
}

func (o *Ordered[V]) Get(k string) (V, bool) {
	v, ok := o.m[k]
	return v, ok
}

func (o *Ordered[V]) Keys() []string { return append([]string(nil), o.keys...) }
func (o *Ordered[V]) Len() int       { return len(o.keys) }

func (o *Ordered[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalValue(o.m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalValue encodes non-finite floats as null; encoding/json style
// encoders reject them.
func marshalValue(v any) ([]byte, error) {
	switch f := v.(type) {
	case float64:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return []byte("null"), nil
		}
	case []any:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, e := range f {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := marshalValue(e)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	}
	return json.Marshal(v)
}
