package notus

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// EmbedPlaceholder is the reserved code point standing in for an embed in
// the character model: the Object Replacement Character. Every embed counts
// as exactly one character of this value. Document.Insert strips it from
// caller-supplied text; Compose and the document constructors take text as
// given.
const EmbedPlaceholder = '￼'

// Attributes is the raw wire form of formatting applied to an operation,
// mapping attribute keys to their JSON values. A nil map means the
// operation carries no formatting. A nil value marks an unset: a transient
// instruction that removes the attribute when composed, never persisted in
// a document.
type Attributes map[string]interface{}

// Equal reports structural equality of two attribute maps. Nil and empty
// maps are considered equal.
func (a Attributes) Equal(b Attributes) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		ov, ok := b[k]
		if !ok || !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the map, or nil for an empty one.
func (a Attributes) Clone() Attributes {
	if len(a) == 0 {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// composeAttributes overlays b onto a, b winning on conflict. When keepNil
// is false, nil values act as removals and are compacted away; when true
// they are kept so a later compose can still apply them.
func composeAttributes(a, b Attributes, keepNil bool) Attributes {
	out := a.Clone()
	if out == nil {
		out = Attributes{}
	}
	for k, v := range b {
		out[k] = v
	}
	if !keepNil {
		for k, v := range out {
			if v == nil {
				delete(out, k)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// transformAttributes transforms b against a. With priority, keys already
// set by a are dropped from b; without, b passes through untouched.
func transformAttributes(a, b Attributes, priority bool) Attributes {
	if a == nil || b == nil || !priority {
		return b.Clone()
	}
	var out Attributes
	for k, v := range b {
		if _, taken := a[k]; taken {
			continue
		}
		if out == nil {
			out = Attributes{}
		}
		out[k] = v
	}
	return out
}

// invertAttributes produces the attributes that undo applying `applied` on
// top of `base`: every applied key maps back to its base value, or to an
// unset when base had none.
func invertAttributes(applied, base Attributes) Attributes {
	if len(applied) == 0 {
		return nil
	}
	out := Attributes{}
	for k := range applied {
		if bv, ok := base[k]; ok {
			out[k] = bv
		} else {
			out[k] = nil
		}
	}
	return out
}

// OpKind is the closed set of operation variants a Delta is built from.
type OpKind uint8

const (
	// OpRetain advances the cursor over existing content, optionally
	// re-applying attributes over the retained range.
	OpRetain OpKind = iota + 1
	// OpInsert inserts textual content, which may contain '\n'.
	OpInsert
	// OpInsertObject inserts a single opaque embed of length 1.
	OpInsertObject
	// OpDelete removes content.
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpRetain:
		return "retain"
	case OpInsert:
		return "insert"
	case OpInsertObject:
		return "insert-object"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Op is one element of a Delta. Kind selects the variant; N carries the
// length of retains and deletes, Text the payload of text inserts, and
// Key/Value the payload of object inserts. Lengths count runes.
type Op struct {
	Kind       OpKind
	N          int
	Text       string
	Key        string
	Value      interface{}
	Attributes Attributes
}

// Retain builds a retain operation of n characters.
func Retain(n int, attributes Attributes) Op {
	return Op{Kind: OpRetain, N: n, Attributes: attributes}
}

// Insert builds a text insert operation.
func Insert(text string, attributes Attributes) Op {
	return Op{Kind: OpInsert, Text: text, Attributes: attributes}
}

// InsertObject builds an embed insert operation of length 1.
func InsertObject(key string, value interface{}, attributes Attributes) Op {
	return Op{Kind: OpInsertObject, Key: key, Value: value, Attributes: attributes}
}

// Delete builds a delete operation of n characters.
func Delete(n int) Op {
	return Op{Kind: OpDelete, N: n}
}

// Len returns the operation's length in characters. Embeds count as 1.
func (o Op) Len() int {
	switch o.Kind {
	case OpInsert:
		return utf8.RuneCountInString(o.Text)
	case OpInsertObject:
		return 1
	default:
		return o.N
	}
}

// IsInsert reports whether the op inserts content of either kind.
func (o Op) IsInsert() bool { return o.Kind == OpInsert || o.Kind == OpInsertObject }

// IsObject reports whether the op is an embed insert.
func (o Op) IsObject() bool { return o.Kind == OpInsertObject }

// HasAttributes reports whether the op carries any formatting.
func (o Op) HasAttributes() bool { return len(o.Attributes) > 0 }

// chars returns the op's contribution to the character model: its text for
// text inserts and the placeholder character for embeds.
func (o Op) chars() string {
	if o.Kind == OpInsertObject {
		return string(EmbedPlaceholder)
	}
	return o.Text
}

// StartsWith reports whether the op's character model starts with s.
func (o Op) StartsWith(s string) bool { return strings.HasPrefix(o.chars(), s) }

// EndsWith reports whether the op's character model ends with s.
func (o Op) EndsWith(s string) bool { return strings.HasSuffix(o.chars(), s) }

// ContainsNewline reports whether the op's character model contains '\n'.
func (o Op) ContainsNewline() bool { return strings.ContainsRune(o.chars(), '\n') }

// IndexOfNewline returns the rune index of the first '\n' in the op's
// character model, or -1.
func (o Op) IndexOfNewline() int {
	byteIdx := strings.IndexByte(o.chars(), '\n')
	if byteIdx < 0 {
		return -1
	}
	return utf8.RuneCountInString(o.chars()[:byteIdx])
}

// Split cuts the op's character model around sep, like strings.Split.
func (o Op) Split(sep string) []string { return strings.Split(o.chars(), sep) }

// Equal reports structural equality of two ops.
func (o Op) Equal(other Op) bool {
	return o.Kind == other.Kind &&
		o.N == other.N &&
		o.Text == other.Text &&
		o.Key == other.Key &&
		reflect.DeepEqual(o.Value, other.Value) &&
		o.Attributes.Equal(other.Attributes)
}

// canMerge reports whether other can be fused onto the end of o.
func (o Op) canMerge(other Op) bool {
	if o.Kind != other.Kind || o.Kind == OpInsertObject {
		return false
	}
	if o.Kind != OpDelete && !o.Attributes.Equal(other.Attributes) {
		return false
	}
	return true
}

// Delta is an ordered, normalized sequence of operations describing either
// a document (inserts only, ending in '\n') or a change to one. The zero
// value from NewDelta is an empty change. Builder methods return the
// receiver for chaining.
type Delta struct {
	ops []Op
}

// NewDelta returns an empty delta.
func NewDelta() *Delta { return &Delta{} }

// Ops exposes the underlying operations. Callers must not mutate them.
func (d *Delta) Ops() []Op { return d.ops }

// IsEmpty reports whether the delta contains no operations.
func (d *Delta) IsEmpty() bool { return len(d.ops) == 0 }

// Length returns the sum of operation lengths. For a document delta this
// is the document length.
func (d *Delta) Length() int {
	total := 0
	for _, op := range d.ops {
		total += op.Len()
	}
	return total
}

// Push appends op, fusing it with the last op when kind and attributes
// match. Zero-length retains and deletes and empty text inserts are
// dropped.
func (d *Delta) Push(op Op) *Delta {
	if op.Len() == 0 {
		return d
	}
	// Unset attribute values are transient: they remove formatting when
	// composed over existing content, but on fresh inserts there is
	// nothing to remove and they are never persisted.
	if op.IsInsert() {
		for _, v := range op.Attributes {
			if v == nil {
				op.Attributes = composeAttributes(nil, op.Attributes, false)
				break
			}
		}
	}
	if n := len(d.ops); n > 0 && d.ops[n-1].canMerge(op) {
		last := &d.ops[n-1]
		switch op.Kind {
		case OpInsert:
			last.Text += op.Text
		default:
			last.N += op.N
		}
		return d
	}
	d.ops = append(d.ops, op)
	return d
}

// Retain appends a retain operation.
func (d *Delta) Retain(n int, attributes Attributes) *Delta {
	return d.Push(Retain(n, attributes))
}

// Insert appends a text insert operation.
func (d *Delta) Insert(text string, attributes Attributes) *Delta {
	return d.Push(Insert(text, attributes))
}

// InsertObject appends an embed insert operation.
func (d *Delta) InsertObject(key string, value interface{}, attributes Attributes) *Delta {
	return d.Push(InsertObject(key, value, attributes))
}

// Delete appends a delete operation.
func (d *Delta) Delete(n int) *Delta {
	return d.Push(Delete(n))
}

// Trim drops a trailing retain that carries no attributes and returns the
// receiver.
func (d *Delta) Trim() *Delta {
	if n := len(d.ops); n > 0 {
		last := d.ops[n-1]
		if last.Kind == OpRetain && !last.HasAttributes() {
			d.ops = d.ops[:n-1]
		}
	}
	return d
}

// Clone returns a deep copy of the delta.
func (d *Delta) Clone() *Delta {
	out := &Delta{ops: make([]Op, len(d.ops))}
	for i, op := range d.ops {
		op.Attributes = op.Attributes.Clone()
		out.ops[i] = op
	}
	return out
}

// Equal reports structural equality of two deltas.
func (d *Delta) Equal(other *Delta) bool {
	if len(d.ops) != len(other.ops) {
		return false
	}
	for i, op := range d.ops {
		if !op.Equal(other.ops[i]) {
			return false
		}
	}
	return true
}

// IsDocument reports whether the delta is a well-formed document: only
// inserts, with a final textual character of '\n'.
func (d *Delta) IsDocument() bool {
	if len(d.ops) == 0 {
		return false
	}
	for _, op := range d.ops {
		if !op.IsInsert() {
			return false
		}
	}
	return d.ops[len(d.ops)-1].EndsWith("\n")
}

// Compose combines this delta with another that applies to its result,
// producing the single delta with the same total effect. The result is
// normalized and trimmed. Composition is associative.
func (d *Delta) Compose(other *Delta) *Delta {
	a := d.Iterator()
	b := other.Iterator()
	out := NewDelta()
	for a.HasNext() || b.HasNext() {
		if b.PeekKind() == OpInsert || b.PeekKind() == OpInsertObject {
			out.Push(b.Next(0))
			continue
		}
		if a.PeekKind() == OpDelete {
			out.Push(a.Next(0))
			continue
		}
		n := min(a.PeekLen(), b.PeekLen())
		aOp := a.Next(n)
		bOp := b.Next(n)
		switch bOp.Kind {
		case OpRetain:
			attrs := composeAttributes(aOp.Attributes, bOp.Attributes, aOp.Kind == OpRetain)
			switch aOp.Kind {
			case OpInsert:
				out.Push(Insert(aOp.Text, attrs))
			case OpInsertObject:
				out.Push(InsertObject(aOp.Key, aOp.Value, attrs))
			default:
				out.Push(Retain(n, attrs))
			}
		case OpDelete:
			if aOp.Kind == OpRetain {
				out.Push(Delete(n))
			}
			// b deletes what a inserted: both cancel.
		}
	}
	return out.Trim()
}

// Transform rewrites other so it can apply after this delta. With
// priority, this delta's effects win position conflicts (its inserts go
// first and its attribute changes suppress other's on the same keys).
func (d *Delta) Transform(other *Delta, priority bool) *Delta {
	a := d.Iterator()
	b := other.Iterator()
	out := NewDelta()
	for a.HasNext() || b.HasNext() {
		if a.PeekKind() == OpInsert || a.PeekKind() == OpInsertObject {
			if priority || !(b.PeekKind() == OpInsert || b.PeekKind() == OpInsertObject) {
				out.Retain(a.Next(0).Len(), nil)
				continue
			}
		}
		if b.PeekKind() == OpInsert || b.PeekKind() == OpInsertObject {
			out.Push(b.Next(0))
			continue
		}
		n := min(a.PeekLen(), b.PeekLen())
		aOp := a.Next(n)
		bOp := b.Next(n)
		if aOp.Kind == OpDelete {
			// Content b was addressing no longer exists.
			continue
		}
		if bOp.Kind == OpDelete {
			out.Delete(n)
			continue
		}
		out.Retain(n, transformAttributes(aOp.Attributes, bOp.Attributes, priority))
	}
	return out.Trim()
}

// TransformPosition rebases a character offset across this delta. With
// priority, an insert exactly at the offset stays after it.
func (d *Delta) TransformPosition(index int, priority bool) int {
	it := d.Iterator()
	offset := 0
	for it.HasNext() && offset <= index {
		op := it.Next(0)
		switch op.Kind {
		case OpDelete:
			index -= min(op.Len(), index-offset)
		case OpInsert, OpInsertObject:
			if offset < index || !priority {
				index += op.Len()
			}
			offset += op.Len()
		default:
			offset += op.Len()
		}
	}
	return index
}

// Invert produces the change that undoes this delta against the base
// document it was applied to.
func (d *Delta) Invert(base *Delta) *Delta {
	inverted := NewDelta()
	baseIndex := 0
	for _, op := range d.ops {
		switch op.Kind {
		case OpInsert, OpInsertObject:
			inverted.Delete(op.Len())
		case OpDelete:
			for _, restored := range base.Slice(baseIndex, baseIndex+op.N).ops {
				inverted.Push(restored)
			}
			baseIndex += op.N
		case OpRetain:
			if !op.HasAttributes() {
				inverted.Retain(op.N, nil)
			} else {
				for _, baseOp := range base.Slice(baseIndex, baseIndex+op.N).ops {
					inverted.Retain(baseOp.Len(), invertAttributes(op.Attributes, baseOp.Attributes))
				}
			}
			baseIndex += op.N
		}
	}
	return inverted.Trim()
}

// Slice returns the sub-delta covering [start, end). A negative end means
// the delta's full length.
func (d *Delta) Slice(start, end int) *Delta {
	out := NewDelta()
	if end < 0 {
		end = d.Length()
	}
	it := d.Iterator()
	pos := 0
	for pos < end && it.HasNext() {
		var op Op
		if pos < start {
			op = it.Next(start - pos)
		} else {
			op = it.Next(end - pos)
			out.Push(op)
		}
		pos += op.Len()
	}
	return out
}

// Apply runs the delta as a change over plain text, embeds rendering as
// the placeholder character. It errors when the delta walks past the end
// of the text.
func (d *Delta) Apply(text string) (string, error) {
	runes := []rune(text)
	var b strings.Builder
	pos := 0
	for _, op := range d.ops {
		switch op.Kind {
		case OpRetain:
			if pos+op.N > len(runes) {
				return "", fmt.Errorf("notus: retain %d past end of text (len %d)", op.N, len(runes))
			}
			b.WriteString(string(runes[pos : pos+op.N]))
			pos += op.N
		case OpDelete:
			if pos+op.N > len(runes) {
				return "", fmt.Errorf("notus: delete %d past end of text (len %d)", op.N, len(runes))
			}
			pos += op.N
		case OpInsert:
			b.WriteString(op.Text)
		case OpInsertObject:
			b.WriteRune(EmbedPlaceholder)
		}
	}
	b.WriteString(string(runes[pos:]))
	return b.String(), nil
}
