package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Metadata is an ordered, string-keyed bag of loosely typed values supplied by
// the merchant. The core passes it through without interpreting it; key order
// survives every JSON round trip.
type Metadata struct {
	keys   []string
	values map[string]any
}

func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]any)}
}

// Set appends k, or replaces its value in place when k already exists.
func (m *Metadata) Set(k string, v any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

func (m *Metadata) Get(k string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[k]
	return v, ok
}

func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	cp := &Metadata{keys: make([]string, len(m.keys)), values: make(map[string]any, len(m.values))}
	copy(cp.keys, m.keys)
	for k, v := range m.values {
		cp.values[k] = v
	}
	return cp
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *Metadata) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("metadata must be a JSON object")
	}
	m.keys = nil
	m.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("metadata key must be a string")
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("metadata %q: %w", key, err)
		}
		m.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
