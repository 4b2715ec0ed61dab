package notus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeConstructors(t *testing.T) {
	assert.Equal(t, Attribute{Key: "bold", Scope: ScopeInline, Value: true}, Bold())
	assert.Equal(t, Attribute{Key: "link", Scope: ScopeInline, Value: "https://a"}, Link("https://a"))
	assert.Equal(t, Attribute{Key: "header", Scope: ScopeLine, Value: 2}, Header(2))
	assert.Equal(t, Attribute{Key: "list", Scope: ScopeLine, Value: "ordered"}, List(ListOrdered))
}

func TestAttributeUnset(t *testing.T) {
	a := Bold().Unset()
	assert.True(t, a.IsUnset())
	assert.Equal(t, BoldKey, a.Key)
	assert.False(t, Bold().IsUnset())
	assert.False(t, a.Equal(Bold()))
}

func TestStylePutIdempotent(t *testing.T) {
	s := Style{}.Put(Bold())
	assert.True(t, s.Equal(s.Put(Bold())))
}

func TestStyleSingleLineAttribute(t *testing.T) {
	s := Style{}.Put(Header(1)).Put(List(ListBullet))
	attr, ok := s.LineStyle()
	require.True(t, ok)
	assert.Equal(t, List(ListBullet), attr)
	assert.False(t, s.Contains(HeaderKey), "applying a second line attribute must unset the first")

	s = s.Put(Blockquote())
	attr, ok = s.LineStyle()
	require.True(t, ok)
	assert.Equal(t, Blockquote(), attr)
	assert.False(t, s.Contains(ListKey))
}

func TestStyleLineAttributeKeepsInline(t *testing.T) {
	s := Style{}.Put(Bold()).Put(Header(2)).Put(List(ListBullet))
	assert.True(t, s.Contains(BoldKey))
	attr, ok := s.LineStyle()
	require.True(t, ok)
	assert.Equal(t, List(ListBullet), attr)
}

func TestStyleMergeUnset(t *testing.T) {
	s := Style{}.Put(Bold()).Put(Italic())

	merged := s.Merge(Bold().Unset())
	assert.False(t, merged.Contains(BoldKey))
	assert.True(t, merged.Contains(ItalicKey))

	// merging an unset for an absent key is a no-op
	same := s.Merge(Link("x").Unset())
	assert.True(t, same.Equal(s))
}

func TestStyleImmutability(t *testing.T) {
	s := Style{}.Put(Bold())
	_ = s.Put(Italic())
	_ = s.Merge(Bold().Unset())
	assert.True(t, s.Contains(BoldKey))
	assert.False(t, s.Contains(ItalicKey))
}

func TestStyleMergeAllAndRemoveAll(t *testing.T) {
	s := Style{}.Put(Bold()).Put(Header(1))
	other := StyleOf(Italic(), List(ListBullet))

	merged := s.MergeAll(other)
	assert.True(t, merged.Contains(BoldKey))
	assert.True(t, merged.Contains(ItalicKey))
	attr, ok := merged.LineStyle()
	require.True(t, ok)
	assert.Equal(t, List(ListBullet), attr)

	removed := merged.RemoveAll(StyleOf(Bold(), List(ListBullet)))
	assert.False(t, removed.Contains(BoldKey))
	assert.False(t, removed.Contains(ListKey))
	assert.True(t, removed.Contains(ItalicKey))
}

func TestStyleQueries(t *testing.T) {
	s := StyleOf(Bold(), Link("https://a"))
	assert.True(t, s.IsInline())
	assert.True(t, s.ContainsSame(Link("https://a")))
	assert.False(t, s.ContainsSame(Link("https://b")))

	s = s.Put(Blockquote())
	assert.False(t, s.IsInline())

	assert.True(t, Style{}.IsEmpty())
	assert.Nil(t, Style{}.ToAttributes())
}

func TestStyleToAttributes(t *testing.T) {
	s := StyleOf(Bold(), Header(3))
	assert.Equal(t, Attributes{"bold": true, "header": 3}, s.ToAttributes())
}

func TestStyleFromAttributes(t *testing.T) {
	reg := DefaultAttributeRegistry()

	s, err := StyleFromAttributes(Attributes{"bold": true, "list": "bullet"}, reg)
	require.NoError(t, err)
	assert.True(t, s.ContainsSame(Bold()))
	attr, ok := s.LineStyle()
	require.True(t, ok)
	assert.Equal(t, List(ListBullet), attr)

	_, err = StyleFromAttributes(Attributes{"wat": 1}, reg)
	assert.Error(t, err, "unknown keys error by default")

	reg.SetCreateMissing(func(key string, value interface{}) (Attribute, error) {
		return Attribute{Key: key, Scope: ScopeInline, Value: value}, nil
	})
	s, err = StyleFromAttributes(Attributes{"wat": 1}, reg)
	require.NoError(t, err)
	assert.True(t, s.Contains("wat"))
}

func TestRegistryScopesAndBlocks(t *testing.T) {
	reg := DefaultAttributeRegistry()

	scope, ok := reg.Scope(ListKey)
	require.True(t, ok)
	assert.Equal(t, ScopeLine, scope)
	assert.True(t, reg.GroupsBlock(ListKey))
	assert.True(t, reg.GroupsBlock(BlockquoteKey))
	assert.True(t, reg.GroupsBlock(CodeBlockKey))
	assert.False(t, reg.GroupsBlock(HeaderKey), "headings live directly under the root")
	assert.False(t, reg.GroupsBlock(BoldKey))

	reg.Register("align", ScopeLine, false)
	scope, ok = reg.Scope("align")
	require.True(t, ok)
	assert.Equal(t, ScopeLine, scope)
}
