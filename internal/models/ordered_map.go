// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package models

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// OrderedMap is a JSON object that remembers the order its keys appeared
// in. PICS records encode sequences (store_tags, genres, associations) as
// objects keyed by opaque upstream IDs, and the extractor must preserve
// that enumeration order exactly since tag rank is derived from it. A
// plain map[string]any loses this; OrderedMap does not.
type OrderedMap struct {
	keys   []string
	values map[string]any
}

// NewOrderedMap returns an empty OrderedMap, ready for Set.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]any)}
}

// Set appends key to the order (if new) and stores value.
func (m *OrderedMap) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m *OrderedMap) Get(key string) (any, bool) {
	if m == nil || m.values == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Keys returns keys in insertion (== upstream document) order.
func (m *OrderedMap) Keys() []string {
	if m == nil {
		return nil
	}
	return m.keys
}

// Values returns values in the same order as Keys.
func (m *OrderedMap) Values() []any {
	if m == nil {
		return nil
	}
	out := make([]any, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

// Len reports the number of entries.
func (m *OrderedMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// UnmarshalJSON decodes a JSON object while recording key order. Nested
// objects decode recursively into *OrderedMap; nested arrays decode into
// []any whose object elements are themselves *OrderedMap.
func (m *OrderedMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("ordered map: read opening token: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ordered map: expected object, got %v", tok)
	}

	m.keys = nil
	m.values = make(map[string]any)

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("ordered map: read key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ordered map: non-string key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("ordered map: decode value for %q: %w", key, err)
		}

		value, err := decodeValue(raw)
		if err != nil {
			return fmt.Errorf("ordered map: value for %q: %w", key, err)
		}
		m.Set(key, value)
	}

	return nil
}

// MarshalJSON re-encodes in original key order.
func (m *OrderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case '{':
		om := NewOrderedMap()
		if err := om.UnmarshalJSON(trimmed); err != nil {
			return nil, err
		}
		return om, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}
