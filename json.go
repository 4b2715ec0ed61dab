package notus

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The wire format is a JSON array of operation objects:
//
//	{"insert": "text", "attributes": {...}}
//	{"insert": {"image": "https://..."}, "attributes": {...}}
//	{"retain": 5, "attributes": {...}}
//	{"delete": 3}
//
// An object insert carries exactly one key in the inner object. Attribute
// scopes are not on the wire; they come from the attribute registry.

// MarshalJSON encodes the op as its wire object.
func (o Op) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, 2)
	switch o.Kind {
	case OpInsert:
		m["insert"] = o.Text
	case OpInsertObject:
		m["insert"] = map[string]interface{}{o.Key: o.Value}
	case OpRetain:
		m["retain"] = o.N
	case OpDelete:
		m["delete"] = o.N
	default:
		return nil, fmt.Errorf("notus: cannot marshal op of unknown kind %d", o.Kind)
	}
	if o.HasAttributes() {
		m["attributes"] = o.Attributes
	}
	return json.Marshal(m)
}

// UnmarshalJSON decodes an op from its wire object.
func (o *Op) UnmarshalJSON(data []byte) error {
	var raw struct {
		Insert     json.RawMessage `json:"insert"`
		Retain     *int            `json:"retain"`
		Delete     *int            `json:"delete"`
		Attributes Attributes      `json:"attributes"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	attrs := normalizeNumbers(raw.Attributes)

	switch {
	case raw.Insert != nil:
		var text string
		if err := json.Unmarshal(raw.Insert, &text); err == nil {
			if text == "" {
				return fmt.Errorf("notus: insert op with empty text")
			}
			*o = Insert(text, attrs)
			return nil
		}
		var object map[string]interface{}
		if err := json.Unmarshal(raw.Insert, &object); err != nil {
			return fmt.Errorf("notus: insert payload must be a string or an object: %w", err)
		}
		if len(object) != 1 {
			return fmt.Errorf("notus: object insert must carry exactly one key, got %d", len(object))
		}
		for key, value := range object {
			*o = InsertObject(key, value, attrs)
		}
		return nil
	case raw.Retain != nil:
		if *raw.Retain < 1 {
			return fmt.Errorf("notus: retain length must be positive, got %d", *raw.Retain)
		}
		*o = Retain(*raw.Retain, attrs)
		return nil
	case raw.Delete != nil:
		if *raw.Delete < 1 {
			return fmt.Errorf("notus: delete length must be positive, got %d", *raw.Delete)
		}
		*o = Delete(*raw.Delete)
		return nil
	}
	return fmt.Errorf("notus: op must carry insert, retain or delete")
}

// MarshalJSON encodes the delta as a JSON array of operations.
func (d *Delta) MarshalJSON() ([]byte, error) {
	if d.ops == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.ops)
}

// UnmarshalJSON decodes a delta from a JSON array of operations.
func (d *Delta) UnmarshalJSON(data []byte) error {
	var ops []Op
	if err := json.Unmarshal(data, &ops); err != nil {
		return err
	}
	// Re-push to restore normalization of hand-written input.
	out := NewDelta()
	for _, op := range ops {
		out.Push(op)
	}
	d.ops = out.ops
	return nil
}

// normalizeNumbers converts json.Number attribute values to int or
// float64 so decoded attributes compare equal to constructed ones.
func normalizeNumbers(attrs Attributes) Attributes {
	if attrs == nil {
		return nil
	}
	for k, v := range attrs {
		num, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := num.Int64(); err == nil {
			attrs[k] = int(i)
		} else if f, err := num.Float64(); err == nil {
			attrs[k] = f
		}
	}
	return attrs
}
