package notus

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// AttributeScope says what a style attribute applies to: a run of
// characters within a line, or the line itself.
type AttributeScope uint8

const (
	// ScopeInline attributes format character runs (bold, italic, link).
	ScopeInline AttributeScope = iota + 1
	// ScopeLine attributes format whole lines (header, list, blockquote,
	// code-block) and live on the line's terminating newline.
	ScopeLine
)

func (s AttributeScope) String() string {
	switch s {
	case ScopeInline:
		return "inline"
	case ScopeLine:
		return "line"
	}
	return "unknown"
}

// Keys of the fallback attribute set.
const (
	BoldKey       = "bold"
	ItalicKey     = "italic"
	LinkKey       = "link"
	HeaderKey     = "header"
	ListKey       = "list"
	BlockquoteKey = "blockquote"
	CodeBlockKey  = "code-block"
)

// Recognized values of the list attribute.
const (
	ListBullet  = "bullet"
	ListOrdered = "ordered"
)

// Attribute is a named style value with a scope. A nil Value marks an
// unset attribute: a transient operation that removes the attribute when
// merged into a style, never persisted in a document.
type Attribute struct {
	Key   string
	Scope AttributeScope
	Value interface{}
}

// IsUnset reports whether the attribute removes rather than sets.
func (a Attribute) IsUnset() bool { return a.Value == nil }

// Unset returns a copy of the attribute with a nil value.
func (a Attribute) Unset() Attribute {
	a.Value = nil
	return a
}

// Equal reports whether key, scope and value all match.
func (a Attribute) Equal(other Attribute) bool {
	return a.Key == other.Key && a.Scope == other.Scope && reflect.DeepEqual(a.Value, other.Value)
}

// Bold formats a character run bold.
func Bold() Attribute { return Attribute{Key: BoldKey, Scope: ScopeInline, Value: true} }

// Italic formats a character run italic.
func Italic() Attribute { return Attribute{Key: ItalicKey, Scope: ScopeInline, Value: true} }

// Link formats a character run as a hyperlink to url.
func Link(url string) Attribute { return Attribute{Key: LinkKey, Scope: ScopeInline, Value: url} }

// Header formats a line as a level 1-3 heading.
func Header(level int) Attribute { return Attribute{Key: HeaderKey, Scope: ScopeLine, Value: level} }

// List formats a line as an item of a bullet or ordered list.
func List(kind string) Attribute { return Attribute{Key: ListKey, Scope: ScopeLine, Value: kind} }

// Blockquote formats a line as part of a quote block.
func Blockquote() Attribute { return Attribute{Key: BlockquoteKey, Scope: ScopeLine, Value: true} }

// CodeBlock formats a line as part of a code block.
func CodeBlock() Attribute { return Attribute{Key: CodeBlockKey, Scope: ScopeLine, Value: true} }

// CreateMissingAttribute decides what to do with an attribute key the
// registry does not recognize.
type CreateMissingAttribute func(key string, value interface{}) (Attribute, error)

// AttributeRegistry maps attribute keys to their scope and block-grouping
// behaviour. It is read-only after document construction and may be shared
// across documents.
type AttributeRegistry struct {
	scopes        map[string]AttributeScope
	blocks        map[string]bool
	createMissing CreateMissingAttribute
}

// NewAttributeRegistry returns an empty registry whose missing-key policy
// is to error.
func NewAttributeRegistry() *AttributeRegistry {
	return &AttributeRegistry{
		scopes: map[string]AttributeScope{},
		blocks: map[string]bool{},
		createMissing: func(key string, value interface{}) (Attribute, error) {
			return Attribute{}, fmt.Errorf("notus: unknown attribute key %q", key)
		},
	}
}

// DefaultAttributeRegistry returns the fallback registry: bold, italic and
// link inline; header, list, blockquote and code-block on lines, the
// latter three grouping lines into blocks.
func DefaultAttributeRegistry() *AttributeRegistry {
	r := NewAttributeRegistry()
	r.Register(BoldKey, ScopeInline, false)
	r.Register(ItalicKey, ScopeInline, false)
	r.Register(LinkKey, ScopeInline, false)
	r.Register(HeaderKey, ScopeLine, false)
	r.Register(ListKey, ScopeLine, true)
	r.Register(BlockquoteKey, ScopeLine, true)
	r.Register(CodeBlockKey, ScopeLine, true)
	return r
}

// Register adds or replaces a key. groupsBlock marks line attributes whose
// lines gather under a shared block node; it is ignored for inline keys.
func (r *AttributeRegistry) Register(key string, scope AttributeScope, groupsBlock bool) {
	r.scopes[key] = scope
	if scope == ScopeLine && groupsBlock {
		r.blocks[key] = true
	} else {
		delete(r.blocks, key)
	}
}

// SetCreateMissing replaces the missing-key policy.
func (r *AttributeRegistry) SetCreateMissing(fn CreateMissingAttribute) {
	r.createMissing = fn
}

// Scope looks up a registered key's scope.
func (r *AttributeRegistry) Scope(key string) (AttributeScope, bool) {
	s, ok := r.scopes[key]
	return s, ok
}

// GroupsBlock reports whether lines carrying this key gather under a
// block node.
func (r *AttributeRegistry) GroupsBlock(key string) bool { return r.blocks[key] }

// Attribute resolves a key and raw value into an Attribute, consulting the
// missing-key policy for unknown keys.
func (r *AttributeRegistry) Attribute(key string, value interface{}) (Attribute, error) {
	if scope, ok := r.scopes[key]; ok {
		return Attribute{Key: key, Scope: scope, Value: value}, nil
	}
	return r.createMissing(key, value)
}

// Style is an immutable set of attributes keyed by name. At most one
// line-scoped attribute is set at a time; applying a second silently
// unsets the first, which is how header, list, blockquote and code-block
// stay mutually exclusive on a line. The zero value is the empty style.
type Style struct {
	attrs map[string]Attribute
}

// StyleOf builds a style from attributes, applied in order via Put.
func StyleOf(attrs ...Attribute) Style {
	s := Style{}
	for _, a := range attrs {
		s = s.Put(a)
	}
	return s
}

// StyleFromAttributes parses a raw attribute map against a registry.
// Unknown keys go through the registry's missing-key policy.
func StyleFromAttributes(attrs Attributes, registry *AttributeRegistry) (Style, error) {
	s := Style{}
	for key, value := range attrs {
		a, err := registry.Attribute(key, value)
		if err != nil {
			return Style{}, err
		}
		s = s.Put(a)
	}
	return s, nil
}

func (s Style) clone() Style {
	out := Style{attrs: make(map[string]Attribute, len(s.attrs)+1)}
	for k, v := range s.attrs {
		out.attrs[k] = v
	}
	return out
}

// IsEmpty reports whether the style holds no attributes.
func (s Style) IsEmpty() bool { return len(s.attrs) == 0 }

// Contains reports whether the style holds an attribute under key.
func (s Style) Contains(key string) bool {
	_, ok := s.attrs[key]
	return ok
}

// ContainsSame reports whether the style holds exactly this attribute.
func (s Style) ContainsSame(a Attribute) bool {
	held, ok := s.attrs[a.Key]
	return ok && held.Equal(a)
}

// Get returns the attribute stored under key.
func (s Style) Get(key string) (Attribute, bool) {
	a, ok := s.attrs[key]
	return a, ok
}

// Put returns a style with a replacing any attribute under the same key.
// A set line-scoped attribute evicts every other line-scoped entry first.
func (s Style) Put(a Attribute) Style {
	out := s.clone()
	if a.Scope == ScopeLine && !a.IsUnset() {
		for k, held := range out.attrs {
			if held.Scope == ScopeLine {
				delete(out.attrs, k)
			}
		}
	}
	out.attrs[a.Key] = a
	return out
}

// Merge is Put with unset attributes compacting to removal.
func (s Style) Merge(a Attribute) Style {
	if a.IsUnset() {
		if !s.Contains(a.Key) {
			return s
		}
		out := s.clone()
		delete(out.attrs, a.Key)
		return out
	}
	return s.Put(a)
}

// MergeAll merges every attribute of other into the style.
func (s Style) MergeAll(other Style) Style {
	out := s
	for _, a := range other.attrs {
		out = out.Merge(a)
	}
	return out
}

// RemoveAll returns the style without any of other's keys.
func (s Style) RemoveAll(other Style) Style {
	if other.IsEmpty() || s.IsEmpty() {
		return s
	}
	out := s.clone()
	for k := range other.attrs {
		delete(out.attrs, k)
	}
	return out
}

// LineStyle returns the style's unique set line-scoped attribute.
func (s Style) LineStyle() (Attribute, bool) {
	for _, a := range s.attrs {
		if a.Scope == ScopeLine && !a.IsUnset() {
			return a, true
		}
	}
	return Attribute{}, false
}

// IsInline reports whether every attribute in the style is inline-scoped.
func (s Style) IsInline() bool {
	for _, a := range s.attrs {
		if a.Scope != ScopeInline {
			return false
		}
	}
	return true
}

// lineSubset returns only the line-scoped attributes, unsets included.
func (s Style) lineSubset() Style {
	out := Style{}
	for _, a := range s.attrs {
		if a.Scope == ScopeLine {
			out = out.Put(a)
		}
	}
	return out
}

// inlineSubset returns only the inline-scoped attributes, unsets included.
func (s Style) inlineSubset() Style {
	out := Style{}
	for _, a := range s.attrs {
		if a.Scope == ScopeInline {
			out = out.Put(a)
		}
	}
	return out
}

// Equal reports structural equality over the full key → attribute map.
func (s Style) Equal(other Style) bool {
	if len(s.attrs) != len(other.attrs) {
		return false
	}
	for k, a := range s.attrs {
		o, ok := other.attrs[k]
		if !ok || !a.Equal(o) {
			return false
		}
	}
	return true
}

// ToAttributes returns the raw key → value map, or nil for an empty
// style.
func (s Style) ToAttributes() Attributes {
	if len(s.attrs) == 0 {
		return nil
	}
	out := make(Attributes, len(s.attrs))
	for k, a := range s.attrs {
		out[k] = a.Value
	}
	return out
}

func (s Style) String() string {
	if s.IsEmpty() {
		return "{}"
	}
	keys := make([]string, 0, len(s.attrs))
	for k := range s.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, s.attrs[k].Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
