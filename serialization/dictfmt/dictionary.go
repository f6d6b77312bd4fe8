// Package dictfmt reads and writes messages as in-memory name/value dictionaries.
// Nested messages become nested dictionaries, repeated fields become slices, bytes
// stay raw and enums travel as their numbers.
package dictfmt

import (
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

// Dictionary is a string-keyed map that remembers insertion order.
type Dictionary struct {
	keys   []string
	values map[string]interface{}
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{values: make(map[string]interface{})}
}

// FromMap converts m into a Dictionary with keys in sorted order. Nested maps, and
// maps inside slices, are converted too.
func FromMap(m map[string]interface{}) *Dictionary {
	d := NewDictionary()
	keys := lo.Keys(m)
	sort.Strings(keys)
	for _, k := range keys {
		d.Set(k, fromNative(m[k]))
	}
	return d
}

func fromNative(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return FromMap(t)
	case []interface{}:
		return lo.Map(t, func(item interface{}, _ int) interface{} { return fromNative(item) })
	}
	return v
}

// Set stores v under key. A new key goes to the end; an existing key keeps its place.
func (d *Dictionary) Set(key string, v interface{}) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = v
}

// Get returns the value stored under key.
func (d *Dictionary) Get(key string) (interface{}, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Delete removes key.
func (d *Dictionary) Delete(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	d.keys = lo.Without(d.keys, key)
}

// Keys returns the keys in insertion order.
func (d *Dictionary) Keys() []string {
	return append([]string(nil), d.keys...)
}

func (d *Dictionary) Len() int { return len(d.keys) }

// ToMap converts d to plain maps and slices, recursively.
func (d *Dictionary) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(d.keys))
	for _, k := range d.keys {
		out[k] = toNative(d.values[k])
	}
	return out
}

func toNative(v interface{}) interface{} {
	switch t := v.(type) {
	case *Dictionary:
		return t.ToMap()
	case []interface{}:
		return lo.Map(t, func(item interface{}, _ int) interface{} { return toNative(item) })
	}
	return v
}

// MarshalJSON renders d as a JSON object in key order. Byte values are base64
// encoded like encoding/json does.
func (d *Dictionary) MarshalJSON() ([]byte, error) {
	stream := jsoniter.ConfigCompatibleWithStandardLibrary.BorrowStream(nil)
	defer jsoniter.ConfigCompatibleWithStandardLibrary.ReturnStream(stream)
	d.writeJSON(stream)
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func (d *Dictionary) writeJSON(stream *jsoniter.Stream) {
	stream.WriteObjectStart()
	for i, k := range d.keys {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(k)
		writeJSONValue(stream, d.values[k])
	}
	stream.WriteObjectEnd()
}

func writeJSONValue(stream *jsoniter.Stream, v interface{}) {
	switch t := v.(type) {
	case *Dictionary:
		t.writeJSON(stream)
	case []interface{}:
		stream.WriteArrayStart()
		for i, item := range t {
			if i > 0 {
				stream.WriteMore()
			}
			writeJSONValue(stream, item)
		}
		stream.WriteArrayEnd()
	default:
		stream.WriteVal(v)
	}
}
