package notus

import "unicode/utf8"

// Leaf is a terminal node of the document tree: a run of text or a single
// embed, both carrying an inline style.
type Leaf interface {
	// Len is the leaf's length in characters. Embeds have length 1.
	Len() int
	// Style returns the leaf's inline style.
	Style() Style
	// Parent returns the line owning the leaf.
	Parent() *Line

	setStyle(Style)
	setParent(*Line)
	// split cuts the leaf at offset, returning the tail. Only valid for
	// offsets strictly inside the leaf.
	split(offset int) Leaf
	writeTo(d *Delta)
	plainText() string
}

// Text is a leaf holding a run of characters that share one inline style.
// It never contains '\n'; line breaks exist only as line boundaries.
type Text struct {
	text   string
	style  Style
	parent *Line
}

func newText(text string, style Style) *Text {
	return &Text{text: text, style: style}
}

// Value returns the leaf's text.
func (t *Text) Value() string { return t.text }

// Len returns the text length in characters.
func (t *Text) Len() int { return utf8.RuneCountInString(t.text) }

// Style returns the leaf's inline style.
func (t *Text) Style() Style { return t.style }

// Parent returns the line owning the leaf.
func (t *Text) Parent() *Line { return t.parent }

func (t *Text) setStyle(s Style)  { t.style = s }
func (t *Text) setParent(l *Line) { t.parent = l }

func (t *Text) split(offset int) Leaf {
	tail := newText(runeSlice(t.text, offset, t.Len()), t.style)
	tail.parent = t.parent
	t.text = runeSlice(t.text, 0, offset)
	return tail
}

func (t *Text) writeTo(d *Delta) {
	d.Insert(t.text, t.style.ToAttributes())
}

func (t *Text) plainText() string { return t.text }

// Embed is a leaf holding a single non-textual value of length 1,
// classified by its embed type.
type Embed struct {
	embedType EmbedType
	value     interface{}
	style     Style
	parent    *Line
}

func newEmbed(t EmbedType, value interface{}, style Style) *Embed {
	return &Embed{embedType: t, value: value, style: style}
}

// EmbedType returns the embed's type.
func (e *Embed) EmbedType() EmbedType { return e.embedType }

// Value returns the embed's opaque value.
func (e *Embed) Value() interface{} { return e.value }

// Len returns 1: every embed counts as a single character.
func (e *Embed) Len() int { return 1 }

// Style returns the embed's inline style.
func (e *Embed) Style() Style { return e.style }

// Parent returns the line owning the leaf.
func (e *Embed) Parent() *Line { return e.parent }

func (e *Embed) setStyle(s Style)  { e.style = s }
func (e *Embed) setParent(l *Line) { e.parent = l }

func (e *Embed) split(offset int) Leaf {
	panic("notus: embed leaves are indivisible")
}

func (e *Embed) writeTo(d *Delta) {
	d.InsertObject(e.embedType.Key, e.value, e.style.ToAttributes())
}

func (e *Embed) plainText() string { return string(EmbedPlaceholder) }
