package notus

import (
	"fmt"
	"strings"
)

// Node is a non-leaf element of the document tree. The containers are
// Root, Block and Line; exhaustive switches over these three cover the
// whole family.
type Node interface {
	// Len is the node's length in characters. Line lengths include the
	// terminating newline.
	Len() int
	writeTo(d *Delta)
}

// Line is a run of leaves terminated by an implicit '\n'. It optionally
// carries a line style; the style lives on the terminating newline in the
// flat representation.
type Line struct {
	leaves []Leaf
	style  Style
	parent Node // *Root or *Block
}

func newLine() *Line { return &Line{} }

// Leaves returns the line's leaves in order. Callers must not mutate the
// slice.
func (l *Line) Leaves() []Leaf { return l.leaves }

// Style returns the line's style.
func (l *Line) Style() Style { return l.style }

// Parent returns the node owning the line: its block, or the root.
func (l *Line) Parent() Node { return l.parent }

// textLen is the line length excluding the terminating newline.
func (l *Line) textLen() int {
	n := 0
	for _, leaf := range l.leaves {
		n += leaf.Len()
	}
	return n
}

// Len returns the line length including the terminating newline.
func (l *Line) Len() int { return l.textLen() + 1 }

func (l *Line) writeTo(d *Delta) {
	for _, leaf := range l.leaves {
		leaf.writeTo(d)
	}
	d.Insert("\n", l.style.ToAttributes())
}

// ToDelta returns the line's content as an insert-only delta, newline
// included.
func (l *Line) ToDelta() *Delta {
	d := NewDelta()
	l.writeTo(d)
	return d
}

// Lookup descends to the leaf containing the local offset, returning the
// leaf and the offset within it. Offsets at the terminating newline (or
// in an empty line) have no leaf. With inclusive set, an offset landing
// exactly on a leaf boundary resolves to the preceding leaf.
func (l *Line) Lookup(offset int, inclusive bool) (Leaf, int) {
	pos := 0
	for _, leaf := range l.leaves {
		n := leaf.Len()
		if offset < pos+n || (inclusive && offset == pos+n) {
			return leaf, offset - pos
		}
		pos += n
	}
	return nil, 0
}

// leafBoundary ensures a leaf boundary exists at the local offset and
// returns the index of the leaf starting there. offset must be within
// [0, textLen].
func (l *Line) leafBoundary(offset int) int {
	pos := 0
	for i, leaf := range l.leaves {
		if offset == pos {
			return i
		}
		n := leaf.Len()
		if offset < pos+n {
			tail := leaf.split(offset - pos)
			rest := append([]Leaf{tail}, l.leaves[i+1:]...)
			l.leaves = append(l.leaves[:i+1], rest...)
			return i + 1
		}
		pos += n
	}
	return len(l.leaves)
}

// insertLeaf places a leaf at the local offset, splitting as needed.
func (l *Line) insertLeaf(offset int, leaf Leaf) {
	leaf.setParent(l)
	i := l.leafBoundary(offset)
	rest := append([]Leaf{leaf}, l.leaves[i:]...)
	l.leaves = append(l.leaves[:i], rest...)
	l.mergeLeaves()
}

// insertText places a newline-free text run at the local offset.
func (l *Line) insertText(offset int, text string, style Style) {
	if text == "" {
		return
	}
	l.insertLeaf(offset, newText(text, style))
}

// deleteText removes n characters of leaf content starting at the local
// offset. The terminating newline is the root's business, not the
// line's.
func (l *Line) deleteText(offset, n int) {
	if n <= 0 {
		return
	}
	from := l.leafBoundary(offset)
	to := l.leafBoundary(offset + n)
	l.leaves = append(l.leaves[:from], l.leaves[to:]...)
	l.mergeLeaves()
}

// format merges an inline style over n characters of leaf content
// starting at the local offset, splitting leaves at the range edges.
func (l *Line) format(offset, n int, style Style) {
	if n <= 0 || style.IsEmpty() {
		return
	}
	from := l.leafBoundary(offset)
	to := l.leafBoundary(offset + n)
	for _, leaf := range l.leaves[from:to] {
		leaf.setStyle(leaf.Style().MergeAll(style))
	}
	l.mergeLeaves()
}

// splitAt cuts the line at the local offset and returns the tail line
// holding the leaves from the offset on. The caller assigns styles and
// ownership.
func (l *Line) splitAt(offset int) *Line {
	i := l.leafBoundary(offset)
	tail := newLine()
	tail.leaves = append(tail.leaves, l.leaves[i:]...)
	for _, leaf := range tail.leaves {
		leaf.setParent(tail)
	}
	l.leaves = l.leaves[:i]
	return tail
}

// mergeLeaves fuses adjacent text leaves with equal styles and drops
// empty ones.
func (l *Line) mergeLeaves() {
	merged := l.leaves[:0]
	for _, leaf := range l.leaves {
		if leaf.Len() == 0 {
			continue
		}
		if t, ok := leaf.(*Text); ok && len(merged) > 0 {
			if prev, ok := merged[len(merged)-1].(*Text); ok && prev.style.Equal(t.style) {
				prev.text += t.text
				continue
			}
		}
		leaf.setParent(l)
		merged = append(merged, leaf)
	}
	l.leaves = merged
}

// Block groups consecutive lines whose line style carries the same
// line-scoped attribute, key and value. Blocks exist only for attributes
// whose semantic requires a shared parent (lists, quotes, code).
type Block struct {
	attribute Attribute
	lines     []*Line
	parent    *Root
}

// Attribute returns the line attribute shared by the block's lines.
func (b *Block) Attribute() Attribute { return b.attribute }

// Lines returns the block's lines in order.
func (b *Block) Lines() []*Line { return b.lines }

// Parent returns the owning root.
func (b *Block) Parent() *Root { return b.parent }

// Len returns the total length of the block's lines.
func (b *Block) Len() int {
	n := 0
	for _, line := range b.lines {
		n += line.Len()
	}
	return n
}

func (b *Block) writeTo(d *Delta) {
	for _, line := range b.lines {
		line.writeTo(d)
	}
}

// Root is the document tree's single root node. It owns every line;
// Children exposes the grouped view where block-forming lines gather
// under Block nodes. Only the document controller mutates the tree.
type Root struct {
	lines    []*Line
	children []Node
	registry *AttributeRegistry
}

// newRoot builds an empty document tree: a single empty line.
func newRoot(registry *AttributeRegistry) *Root {
	r := &Root{registry: registry}
	r.lines = []*Line{newLine()}
	r.regroup()
	return r
}

// Lines returns every line of the document in order.
func (r *Root) Lines() []*Line { return r.lines }

// Children returns the grouped view: Line and Block nodes in document
// order.
func (r *Root) Children() []Node { return r.children }

// Len returns the document length in characters, terminating newlines
// included.
func (r *Root) Len() int {
	n := 0
	for _, line := range r.lines {
		n += line.Len()
	}
	return n
}

// ToDelta flattens the tree into its document delta: an insert per leaf
// plus one '\n' per line carrying that line's style.
func (r *Root) ToDelta() *Delta {
	d := NewDelta()
	for _, line := range r.lines {
		line.writeTo(d)
	}
	return d
}

func (r *Root) writeTo(d *Delta) {
	for _, line := range r.lines {
		line.writeTo(d)
	}
}

// PlainText renders the document's character model: text runs, a
// placeholder per embed, a newline per line.
func (r *Root) PlainText() string {
	var b strings.Builder
	for _, line := range r.lines {
		for _, leaf := range line.leaves {
			b.WriteString(leaf.plainText())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Lookup descends to the line containing the offset and returns it with
// the local offset inside it. With inclusive set, an offset landing
// exactly on a line boundary resolves to the preceding line, giving
// zero-length edits a defined home.
func (r *Root) Lookup(offset int, inclusive bool) (*Line, int) {
	pos := 0
	for _, line := range r.lines {
		n := line.Len()
		if offset < pos+n || (inclusive && offset == pos+n) {
			return line, offset - pos
		}
		pos += n
	}
	return nil, 0
}

func (r *Root) findLine(offset int) (int, int, error) {
	pos := 0
	for i, line := range r.lines {
		n := line.Len()
		if offset < pos+n {
			return i, offset - pos, nil
		}
		pos += n
	}
	return 0, 0, fmt.Errorf("notus: offset %d outside document of length %d", offset, r.Len())
}

// Insert places text at the offset. Text containing '\n' splits the
// containing line at each newline: inserted line breaks carry the
// caller's line-scoped style, the final segment joins the remainder of
// the original line, which preserves its style.
func (r *Root) Insert(offset int, text string, style Style) error {
	if text == "" {
		return nil
	}
	li, lo, err := r.findLine(offset)
	if err != nil {
		return err
	}
	line := r.lines[li]
	inline := compactStyle(style.inlineSubset())

	if !strings.Contains(text, "\n") {
		line.insertText(lo, text, inline)
		r.regroup()
		return nil
	}

	segments := strings.Split(text, "\n")
	nlStyle := compactStyle(style.lineSubset())
	tail := line.splitAt(lo)
	tail.style = line.style

	cur := line
	produced := make([]*Line, 0, len(segments))
	for i, seg := range segments {
		if i == len(segments)-1 {
			if seg != "" {
				tail.insertText(0, seg, inline)
			}
			break
		}
		if seg != "" {
			cur.insertText(cur.textLen(), seg, inline)
		}
		cur.style = nlStyle
		if i == len(segments)-2 {
			cur = tail
		} else {
			next := newLine()
			produced = append(produced, next)
			cur = next
		}
	}

	inserted := append(produced, tail)
	rest := append([]*Line{}, r.lines[li+1:]...)
	r.lines = append(r.lines[:li+1], append(inserted, rest...)...)
	r.regroup()
	return nil
}

// InsertObject places an embed leaf at the offset with the given inline
// style. Callers are expected to have routed the edit through the
// insert-object rules so placement invariants hold.
func (r *Root) InsertObject(offset int, embedType EmbedType, value interface{}, style Style) error {
	li, lo, err := r.findLine(offset)
	if err != nil {
		return err
	}
	r.lines[li].insertLeaf(lo, newEmbed(embedType, value, compactStyle(style.inlineSubset())))
	r.regroup()
	return nil
}

// Delete removes length characters starting at the offset. Deleting a
// line's terminating newline merges that line into the next one, which
// keeps the later line's style.
func (r *Root) Delete(offset, length int) error {
	remaining := length
	for remaining > 0 {
		li, lo, err := r.findLine(offset)
		if err != nil {
			return err
		}
		line := r.lines[li]
		avail := line.Len() - lo
		take := min(remaining, avail)
		if lo+take >= line.Len() {
			if li == len(r.lines)-1 {
				return fmt.Errorf("notus: cannot delete the document's trailing newline")
			}
			line.deleteText(lo, take-1)
			next := r.lines[li+1]
			next.leaves = append(append([]Leaf{}, line.leaves...), next.leaves...)
			next.mergeLeaves()
			r.lines = append(r.lines[:li], r.lines[li+1:]...)
		} else {
			line.deleteText(lo, take)
		}
		remaining -= take
	}
	r.regroup()
	return nil
}

// Retain re-applies a style over [offset, offset+length). Inline
// attributes split leaves as needed; line attributes apply only at
// newline positions, where a set one replaces any existing line-scoped
// attribute.
func (r *Root) Retain(offset, length int, style Style) error {
	pos := offset
	remaining := length
	inline := style.inlineSubset()
	lineStyle := style.lineSubset()
	for remaining > 0 {
		li, lo, err := r.findLine(pos)
		if err != nil {
			return err
		}
		line := r.lines[li]
		avail := line.Len() - lo
		take := min(remaining, avail)
		textN := take
		coversNewline := lo+take >= line.Len()
		if coversNewline {
			textN--
		}
		if textN > 0 && !inline.IsEmpty() {
			line.format(lo, textN, inline)
		}
		if coversNewline && !lineStyle.IsEmpty() {
			line.style = line.style.MergeAll(lineStyle)
		}
		pos += take
		remaining -= take
	}
	r.regroup()
	return nil
}

// regroup rebuilds the grouped child view: consecutive lines whose set
// line-scoped attribute matches in key and value share one block;
// everything else hangs directly off the root. Lines transfer ownership,
// they are never duplicated.
func (r *Root) regroup() {
	r.children = r.children[:0]
	var open *Block
	for _, line := range r.lines {
		attr, ok := line.style.LineStyle()
		if ok && r.registry.GroupsBlock(attr.Key) {
			if open != nil && open.attribute.Equal(attr) {
				open.lines = append(open.lines, line)
			} else {
				open = &Block{attribute: attr, lines: []*Line{line}, parent: r}
				r.children = append(r.children, open)
			}
			line.parent = open
		} else {
			open = nil
			line.parent = r
			r.children = append(r.children, line)
		}
	}
}

// compactStyle drops transient unset attributes so they are never
// persisted in the tree.
func compactStyle(s Style) Style {
	return Style{}.MergeAll(s)
}
