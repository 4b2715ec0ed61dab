package notus

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ChangeSource tags who produced a change. The engine never reconciles
// divergent histories itself; the tag lets a host layer operational
// transformation on top.
type ChangeSource string

const (
	// SourceLocal marks changes produced by this process.
	SourceLocal ChangeSource = "local"
	// SourceRemote marks changes received from collaborators.
	SourceRemote ChangeSource = "remote"
)

// Change is one event on a document's change stream.
type Change struct {
	// Before is the document delta as of the previous emission.
	Before *Delta
	// Change is the composed change that was applied.
	Change *Delta
	// Source tags the change's origin.
	Source ChangeSource
}

// Errors returned for misused documents.
var (
	ErrClosed    = errors.New("notus: document is closed")
	ErrReentrant = errors.New("notus: document mutated from within a change handler")
)

type config struct {
	heuristics *Heuristics
	attributes *AttributeRegistry
	embeds     *EmbedRegistry
}

// Option adjusts a document's configuration; zero or more can be passed
// to the constructors.
type Option func(cfg *config)

// WithHeuristics replaces the default rule pipelines. Every pipeline must
// keep a catch-all last.
func WithHeuristics(h *Heuristics) Option {
	return func(cfg *config) { cfg.heuristics = h }
}

// WithAttributeRegistry replaces the fallback attribute registry.
func WithAttributeRegistry(r *AttributeRegistry) Option {
	return func(cfg *config) { cfg.attributes = r }
}

// WithEmbedRegistry replaces the fallback embed registry.
func WithEmbedRegistry(r *EmbedRegistry) Option {
	return func(cfg *config) { cfg.embeds = r }
}

// Document is the engine's controller: it owns one root tree and one
// document delta from construction to Close, validates edit intents, runs
// them through the heuristic pipelines, composes the result into tree and
// delta in lockstep and publishes the change stream. A document is
// single-threaded; no method may be called concurrently.
type Document struct {
	delta      *Delta
	root       *Root
	heuristics *Heuristics
	attributes *AttributeRegistry
	embeds     *EmbedRegistry

	subscribers []*subscriber
	closed      bool
	composing   bool
}

type subscriber struct {
	fn     func(Change)
	active bool
}

// NewDocument creates an empty document: a single empty line.
func NewDocument(opts ...Option) *Document {
	d := newDocumentWith(opts)
	d.delta = NewDelta().Insert("\n", nil)
	d.loadDelta(d.delta)
	return d
}

// NewDocumentFromDelta creates a document from a well-formed document
// delta: inserts only, ending in '\n'.
func NewDocumentFromDelta(delta *Delta, opts ...Option) (*Document, error) {
	if !delta.IsDocument() {
		return nil, fmt.Errorf("notus: document delta must contain only inserts and end in a newline")
	}
	d := newDocumentWith(opts)
	d.delta = delta.Clone()
	if err := d.loadDelta(d.delta); err != nil {
		return nil, err
	}
	return d, nil
}

// NewDocumentFromJSON creates a document from the JSON wire format.
func NewDocumentFromJSON(data []byte, opts ...Option) (*Document, error) {
	delta := NewDelta()
	if err := json.Unmarshal(data, delta); err != nil {
		return nil, fmt.Errorf("notus: parsing document: %w", err)
	}
	return NewDocumentFromDelta(delta, opts...)
}

func newDocumentWith(opts []Option) *Document {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.heuristics == nil {
		cfg.heuristics = DefaultHeuristics()
	}
	if cfg.attributes == nil {
		cfg.attributes = DefaultAttributeRegistry()
	}
	if cfg.embeds == nil {
		cfg.embeds = DefaultEmbedRegistry()
	}
	return &Document{
		heuristics: cfg.heuristics,
		attributes: cfg.attributes,
		embeds:     cfg.embeds,
	}
}

// loadDelta rebuilds the root tree from a document delta.
func (d *Document) loadDelta(delta *Delta) error {
	d.root = newRoot(d.attributes)
	offset := 0
	for _, op := range delta.Ops() {
		style, err := StyleFromAttributes(op.Attributes, d.attributes)
		if err != nil {
			return err
		}
		switch op.Kind {
		case OpInsert:
			if err := d.root.Insert(offset, op.Text, style); err != nil {
				return err
			}
		case OpInsertObject:
			embedType, err := d.embeds.Get(op.Key, op.Value)
			if err != nil {
				return err
			}
			if err := d.root.InsertObject(offset, embedType, op.Value, style); err != nil {
				return err
			}
		default:
			return fmt.Errorf("notus: document delta holds a non-insert op %s", op.Kind)
		}
		offset += op.Len()
	}
	// The fresh root carries one empty line; loading ends with the
	// document's own trailing newline, leaving that seed line empty at
	// the bottom. Drop it.
	if n := len(d.root.lines); n > 1 {
		last := d.root.lines[n-1]
		if len(last.leaves) == 0 && last.style.IsEmpty() {
			d.root.lines = d.root.lines[:n-1]
			d.root.regroup()
		}
	}
	return nil
}

// Length returns the document length in characters, the trailing newline
// included.
func (d *Document) Length() int { return d.delta.Length() }

// Root exposes the document tree for read-only traversal.
func (d *Document) Root() *Root { return d.root }

// ToDelta returns a copy of the document delta.
func (d *Document) ToDelta() *Delta { return d.delta.Clone() }

// ToJSON serializes the document delta to the wire format.
func (d *Document) ToJSON() ([]byte, error) { return json.Marshal(d.delta) }

// ToPlainText renders the character model: text content with one
// placeholder character per embed.
func (d *Document) ToPlainText() string { return d.root.PlainText() }

// IsClosed reports whether Close was called.
func (d *Document) IsClosed() bool { return d.closed }

// Close makes the document read-only. Every edit method rejects further
// calls.
func (d *Document) Close() { d.closed = true }

// Subscribe registers a change handler, invoked synchronously after each
// successful edit in registration order. The returned function cancels
// the subscription. Handlers must not mutate the document.
func (d *Document) Subscribe(fn func(Change)) (cancel func()) {
	sub := &subscriber{fn: fn, active: true}
	d.subscribers = append(d.subscribers, sub)
	return func() { sub.active = false }
}

func (d *Document) ruleContext() *RuleContext {
	return &RuleContext{Attributes: d.attributes, Embeds: d.embeds}
}

func (d *Document) ensureMutable() error {
	if d.closed {
		return ErrClosed
	}
	if d.composing {
		return ErrReentrant
	}
	return nil
}

func (d *Document) validateRange(index, length int) error {
	if index < 0 || length < 0 {
		return fmt.Errorf("notus: negative index %d or length %d", index, length)
	}
	if index+length > d.Length() {
		return fmt.Errorf("notus: range [%d, %d) outside document of length %d", index, index+length, d.Length())
	}
	return nil
}

func (d *Document) validateIndex(index int) error {
	if index < 0 || index >= d.Length() {
		return fmt.Errorf("notus: index %d outside document of length %d", index, d.Length())
	}
	return nil
}

// Insert places text at the index after running the insert rules, and
// returns the composed change. The embed placeholder character is
// stripped from the text first; a text left empty by that is a no-op.
func (d *Document) Insert(index int, text string) (*Delta, error) {
	if err := d.ensureMutable(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("notus: insert text must not be empty")
	}
	if err := d.validateIndex(index); err != nil {
		return nil, err
	}
	text = strings.ReplaceAll(text, string(EmbedPlaceholder), "")
	if text == "" {
		return NewDelta(), nil
	}
	change, err := d.heuristics.applyInsert(d.ruleContext(), d.delta, index, text)
	if err != nil {
		return nil, err
	}
	if change.IsEmpty() {
		return change, nil
	}
	if err := d.Compose(change, SourceLocal); err != nil {
		return nil, err
	}
	return change, nil
}

// InsertObject places an embed at the index after running the
// insert-object rules, and returns the composed change.
func (d *Document) InsertObject(index int, embedType EmbedType, value interface{}, style Style) (*Delta, error) {
	if err := d.ensureMutable(); err != nil {
		return nil, err
	}
	if embedType.Key == "" {
		return nil, fmt.Errorf("notus: embed type must carry a key")
	}
	if err := d.validateIndex(index); err != nil {
		return nil, err
	}
	change, err := d.heuristics.applyInsertObject(d.ruleContext(), d.delta, index, embedType, value, style)
	if err != nil {
		return nil, err
	}
	if change.IsEmpty() {
		return change, nil
	}
	if err := d.Compose(change, SourceLocal); err != nil {
		return nil, err
	}
	return change, nil
}

// Delete removes a range after running the delete rules, and returns the
// composed change. Rules may veto the deletion by reducing it to an empty
// change.
func (d *Document) Delete(index, length int) (*Delta, error) {
	if err := d.ensureMutable(); err != nil {
		return nil, err
	}
	if err := d.validateRange(index, length); err != nil {
		return nil, err
	}
	if length == 0 {
		return NewDelta(), nil
	}
	change, err := d.heuristics.applyDelete(d.ruleContext(), d.delta, index, length)
	if err != nil {
		return nil, err
	}
	if change.IsEmpty() {
		return change, nil
	}
	if err := d.Compose(change, SourceLocal); err != nil {
		return nil, err
	}
	return change, nil
}

// Format applies an attribute over a range after running the format
// rules, and returns the composed change, which is empty when the format
// is a no-op.
func (d *Document) Format(index, length int, attr Attribute) (*Delta, error) {
	if err := d.ensureMutable(); err != nil {
		return nil, err
	}
	if err := d.validateRange(index, length); err != nil {
		return nil, err
	}
	change, err := d.heuristics.applyFormat(d.ruleContext(), d.delta, index, length, attr)
	if err != nil {
		return nil, err
	}
	if change.IsEmpty() {
		return change, nil
	}
	if err := d.Compose(change, SourceLocal); err != nil {
		return nil, err
	}
	return change, nil
}

// Replace substitutes a range with text: an empty text delegates to
// Delete, a zero length to Insert, and otherwise the text is inserted at
// the range's end before the range is deleted, so surrounding styles
// resolve against the original content. Returns the composed change.
func (d *Document) Replace(index, length int, text string) (*Delta, error) {
	if err := d.ensureMutable(); err != nil {
		return nil, err
	}
	if text == "" && length == 0 {
		return nil, fmt.Errorf("notus: replace needs text to insert or a range to delete")
	}
	if text == "" {
		return d.Delete(index, length)
	}
	if length == 0 {
		return d.Insert(index, text)
	}
	inserted, err := d.Insert(index+length, text)
	if err != nil {
		return nil, err
	}
	deleted, err := d.Delete(index, length)
	if err != nil {
		return nil, err
	}
	return inserted.Compose(deleted), nil
}

// Compose applies a change delta to the document: the tree and the stored
// delta advance in lockstep, their equivalence is asserted, and only then
// is the change published to subscribers. On any failure both views are
// restored to the pre-change state.
func (d *Document) Compose(change *Delta, source ChangeSource) error {
	if err := d.ensureMutable(); err != nil {
		return err
	}
	change = change.Clone().Trim()
	if change.IsEmpty() {
		return fmt.Errorf("notus: compose requires a non-empty change")
	}
	d.composing = true
	defer func() { d.composing = false }()

	before := d.delta
	if err := d.applyToTree(change); err != nil {
		d.restore(before)
		return err
	}
	result := before.Compose(change)
	if treeDelta := d.root.ToDelta(); !treeDelta.Equal(result) {
		d.restore(before)
		return fmt.Errorf("notus: tree diverged from composed delta applying %s change %s", source, change)
	}
	d.delta = result

	event := Change{Before: before.Clone(), Change: change, Source: source}
	for _, sub := range d.subscribers {
		if sub.active {
			sub.fn(event)
		}
	}
	return nil
}

func (d *Document) applyToTree(change *Delta) error {
	offset := 0
	for _, op := range change.Ops() {
		style, err := StyleFromAttributes(op.Attributes, d.attributes)
		if err != nil {
			return err
		}
		switch op.Kind {
		case OpInsert:
			if err := d.root.Insert(offset, op.Text, style); err != nil {
				return err
			}
			offset += op.Len()
		case OpInsertObject:
			embedType, err := d.embeds.Get(op.Key, op.Value)
			if err != nil {
				return err
			}
			if err := d.root.InsertObject(offset, embedType, op.Value, style); err != nil {
				return err
			}
			offset++
		case OpDelete:
			if err := d.root.Delete(offset, op.N); err != nil {
				return err
			}
		case OpRetain:
			if op.HasAttributes() {
				if err := d.root.Retain(offset, op.N, style); err != nil {
					return err
				}
			}
			offset += op.N
		}
	}
	return nil
}

func (d *Document) restore(before *Delta) {
	d.delta = before
	// Tree rebuilds are the recovery path only; edits stay atomic.
	if err := d.loadDelta(before); err != nil {
		panic(fmt.Sprintf("notus: cannot restore document tree: %v", err))
	}
}

// CollectStyle reports the formatting common to a range: the intersection
// of inline attributes present on every character and of the line styles
// of every line the range touches. A zero length reports the style at the
// caret.
func (d *Document) CollectStyle(index, length int) (Style, error) {
	if err := d.validateRange(index, length); err != nil {
		return Style{}, err
	}
	if length == 0 {
		return d.caretStyle(index)
	}

	it := d.delta.Iterator()
	it.Skip(index)
	var inline Attributes
	first := true
	endsAtLineBreak := false
	sawNewlineAttrs := []Attributes{}
	remaining := length
	for remaining > 0 && it.HasNext() {
		op := it.Next(remaining)
		remaining -= op.Len()
		endsAtLineBreak = op.EndsWith("\n")
		segments := op.Split("\n")
		for i, seg := range segments {
			if i > 0 {
				sawNewlineAttrs = append(sawNewlineAttrs, op.Attributes)
			}
			if seg == "" {
				continue
			}
			if first {
				inline = op.Attributes.Clone()
				first = false
			} else {
				inline = intersectAttributes(inline, op.Attributes)
			}
		}
	}
	// A range stopping short of a line break still intersects that line;
	// its style counts too.
	for !endsAtLineBreak && it.HasNext() {
		op := it.Next(0)
		if op.IndexOfNewline() >= 0 {
			sawNewlineAttrs = append(sawNewlineAttrs, op.Attributes)
			break
		}
	}

	var lineAttrs Attributes
	for i, attrs := range sawNewlineAttrs {
		if i == 0 {
			lineAttrs = attrs.Clone()
		} else {
			lineAttrs = intersectAttributes(lineAttrs, attrs)
		}
	}

	style, err := StyleFromAttributes(inline, d.attributes)
	if err != nil {
		return Style{}, err
	}
	style = style.inlineSubset()
	lineStyle, err := StyleFromAttributes(lineAttrs, d.attributes)
	if err != nil {
		return Style{}, err
	}
	return style.MergeAll(lineStyle.lineSubset()), nil
}

// caretStyle is what a toolbar shows with nothing selected: the inline
// style of the character before the caret plus the containing line's
// style.
func (d *Document) caretStyle(index int) (Style, error) {
	it := d.delta.Iterator()
	prev, hasPrev := it.Skip(index)
	style := Style{}
	if hasPrev && !prev.ContainsNewline() {
		parsed, err := StyleFromAttributes(prev.Attributes, d.attributes)
		if err != nil {
			return Style{}, err
		}
		style = parsed.inlineSubset()
	}
	for it.HasNext() {
		op := it.Next(0)
		if op.IndexOfNewline() < 0 {
			continue
		}
		parsed, err := StyleFromAttributes(op.Attributes, d.attributes)
		if err != nil {
			return Style{}, err
		}
		return style.MergeAll(parsed.lineSubset()), nil
	}
	return style, nil
}

// intersectAttributes keeps the keys both maps hold with equal values.
func intersectAttributes(a, b Attributes) Attributes {
	var out Attributes
	for k, v := range a {
		if ov, ok := b[k]; ok && attributeValueEqual(v, ov) {
			if out == nil {
				out = Attributes{}
			}
			out[k] = v
		}
	}
	return out
}

func attributeValueEqual(a, b interface{}) bool {
	return reflect.DeepEqual(a, b)
}
