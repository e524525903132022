package coerce

import (
	"bytes"
	"encoding/json"
	"slices"

	"gopkg.in/yaml.v3"
)

// Record maps clean label keys to values. Keys keep their first insertion
// order; setting an existing key replaces the value in place.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set stores v under key, overwriting any earlier value.
func (r *Record) Set(key string, v Value) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	return slices.Clone(r.keys)
}

// Len returns the number of keys.
func (r *Record) Len() int {
	return len(r.keys)
}

// Map returns the record as plain Go values.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.keys))
	for k, v := range r.values {
		out[k] = v.Interface()
	}
	return out
}

// MarshalJSON writes an object with keys in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := r.values[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML writes a mapping with keys in insertion order.
func (r *Record) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range r.keys {
		var val yaml.Node
		if err := val.Encode(r.values[k].Interface()); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&val,
		)
	}
	return node, nil
}
