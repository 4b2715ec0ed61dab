package notus

import "math"

// DeltaIterator walks a delta's operations in units of length >= 1,
// splitting ops at arbitrary offsets. Past the final op it synthesizes
// plain retains so two deltas of different base lengths can be walked in
// lockstep.
type DeltaIterator struct {
	ops    []Op
	index  int
	offset int // rune offset consumed within ops[index]
}

// Iterator returns a fresh iterator positioned at the delta's start.
func (d *Delta) Iterator() *DeltaIterator {
	return &DeltaIterator{ops: d.ops}
}

// HasNext reports whether any real operation remains.
func (it *DeltaIterator) HasNext() bool {
	return it.index < len(it.ops)
}

// PeekKind returns the kind of the next operation, or OpRetain when the
// iterator is exhausted.
func (it *DeltaIterator) PeekKind() OpKind {
	if !it.HasNext() {
		return OpRetain
	}
	return it.ops[it.index].Kind
}

// PeekLen returns the remaining length of the current operation, or a
// practically infinite length when exhausted.
func (it *DeltaIterator) PeekLen() int {
	if !it.HasNext() {
		return math.MaxInt
	}
	return it.ops[it.index].Len() - it.offset
}

// Peek returns the remainder of the current operation without consuming
// it. The second result is false when the iterator is exhausted.
func (it *DeltaIterator) Peek() (Op, bool) {
	if !it.HasNext() {
		return Op{}, false
	}
	save := *it
	op := it.Next(0)
	*it = save
	return op, true
}

// Next consumes and returns up to max characters of the current operation,
// splitting it when needed. A max <= 0 consumes the operation's remainder.
// When exhausted it returns a synthetic plain retain of max.
func (it *DeltaIterator) Next(max int) Op {
	if !it.HasNext() {
		if max <= 0 {
			max = math.MaxInt
		}
		return Retain(max, nil)
	}
	cur := it.ops[it.index]
	avail := cur.Len() - it.offset
	take := avail
	if max > 0 && max < avail {
		take = max
	}

	var out Op
	switch cur.Kind {
	case OpInsert:
		out = Insert(runeSlice(cur.Text, it.offset, it.offset+take), cur.Attributes)
	case OpInsertObject:
		out = InsertObject(cur.Key, cur.Value, cur.Attributes)
	case OpRetain:
		out = Retain(take, cur.Attributes)
	case OpDelete:
		out = Delete(take)
	}

	if take == avail {
		it.index++
		it.offset = 0
	} else {
		it.offset += take
	}
	return out
}

// Skip consumes n characters and returns the operation immediately
// preceding offset n: the last (possibly partial) op consumed. The second
// result is false at the document start (n == 0).
func (it *DeltaIterator) Skip(n int) (Op, bool) {
	var last Op
	found := false
	for n > 0 && it.HasNext() {
		op := it.Next(n)
		last = op
		found = true
		n -= op.Len()
	}
	return last, found
}

// runeSlice slices s by rune offsets [from, to).
func runeSlice(s string, from, to int) string {
	runes := []rune(s)
	if from < 0 {
		from = 0
	}
	if to > len(runes) {
		to = len(runes)
	}
	if from >= to {
		return ""
	}
	return string(runes[from:to])
}
