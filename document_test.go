package notus

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentIsSingleEmptyLine(t *testing.T) {
	doc := NewDocument()
	assert.Equal(t, 1, doc.Length())
	assert.Equal(t, "\n", doc.ToPlainText())
	assert.True(t, doc.ToDelta().IsDocument())
}

func TestDocumentInsertBoundaries(t *testing.T) {
	doc := mustDocument(t, NewDelta().Insert("abc\n", nil))

	_, err := doc.Insert(0, "x")
	require.NoError(t, err)
	_, err = doc.Insert(doc.Length()-1, "y")
	require.NoError(t, err)
	assert.Equal(t, "xabcy\n", doc.ToPlainText())

	_, err = doc.Insert(doc.Length(), "z")
	assert.Error(t, err, "insert past the last newline")
	_, err = doc.Insert(-1, "z")
	assert.Error(t, err)
	_, err = doc.Insert(0, "")
	assert.Error(t, err, "empty text is a programmer error")
}

func TestDocumentInsertStripsEmbedPlaceholder(t *testing.T) {
	doc := NewDocument()
	_, err := doc.Insert(0, "a￼b")
	require.NoError(t, err)
	assert.Equal(t, "ab\n", doc.ToPlainText())

	change, err := doc.Insert(0, "￼")
	require.NoError(t, err)
	assert.True(t, change.IsEmpty(), "placeholder-only text is a no-op")
	assert.Equal(t, "ab\n", doc.ToPlainText())
}

func TestDocumentDeltaAndTreeStayConsistent(t *testing.T) {
	doc := NewDocument()

	check := func() {
		t.Helper()
		if diff := cmp.Diff(doc.ToDelta().Ops(), doc.Root().ToDelta().Ops()); diff != "" {
			t.Fatalf("tree and delta diverged (-delta +tree):\n%s", diff)
		}
		assert.True(t, doc.ToDelta().IsDocument())
	}

	steps := []func() (*Delta, error){
		func() (*Delta, error) { return doc.Insert(0, "hello world") },
		func() (*Delta, error) { return doc.Format(0, 5, Bold()) },
		func() (*Delta, error) { return doc.Format(3, 0, Header(2)) },
		func() (*Delta, error) { return doc.Insert(11, "\nsecond line") },
		func() (*Delta, error) { return doc.Format(14, 0, List(ListBullet)) },
		func() (*Delta, error) { return doc.Delete(2, 6) },
		func() (*Delta, error) { return doc.InsertObject(3, HorizontalRule(), nil, Style{}) },
		func() (*Delta, error) { return doc.Replace(0, 2, "He") },
		func() (*Delta, error) { return doc.Insert(1, "y there") },
	}
	for i, step := range steps {
		_, err := step()
		require.NoError(t, err, "step %d", i)
		check()
	}
}

func TestDocumentChangeStream(t *testing.T) {
	doc := NewDocument()

	var events []Change
	cancel := doc.Subscribe(func(c Change) { events = append(events, c) })

	first, err := doc.Insert(0, "hi")
	require.NoError(t, err)
	second, err := doc.Format(0, 2, Bold())
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.True(t, events[0].Before.Equal(NewDelta().Insert("\n", nil)))
	assert.True(t, events[0].Change.Equal(first))
	assert.Equal(t, SourceLocal, events[0].Source)
	assert.True(t, events[1].Before.Equal(NewDelta().Insert("hi\n", nil)))
	assert.True(t, events[1].Change.Equal(second))

	cancel()
	_, err = doc.Insert(0, "x")
	require.NoError(t, err)
	assert.Len(t, events, 2, "cancelled subscriber must not receive further changes")
}

func TestDocumentSubscribersRunInRegistrationOrder(t *testing.T) {
	doc := NewDocument()
	var order []int
	doc.Subscribe(func(Change) { order = append(order, 1) })
	doc.Subscribe(func(Change) { order = append(order, 2) })
	doc.Subscribe(func(Change) { order = append(order, 3) })

	_, err := doc.Insert(0, "x")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestDocumentReentrantMutationFails(t *testing.T) {
	doc := NewDocument()
	var reentrantErr error
	doc.Subscribe(func(Change) {
		_, reentrantErr = doc.Insert(0, "again")
	})
	_, err := doc.Insert(0, "x")
	require.NoError(t, err)
	assert.ErrorIs(t, reentrantErr, ErrReentrant)
	assert.Equal(t, "x\n", doc.ToPlainText())
}

func TestDocumentClose(t *testing.T) {
	doc := NewDocument()
	assert.False(t, doc.IsClosed())
	doc.Close()
	assert.True(t, doc.IsClosed())

	_, err := doc.Insert(0, "x")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = doc.Delete(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = doc.Format(0, 0, Bold())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = doc.InsertObject(0, HorizontalRule(), nil, Style{})
	assert.ErrorIs(t, err, ErrClosed)
	err = doc.Compose(NewDelta().Insert("x", nil), SourceRemote)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDocumentReplace(t *testing.T) {
	doc := mustDocument(t, NewDelta().Insert("Hello World\n", nil))

	change, err := doc.Replace(6, 5, "Go")
	require.NoError(t, err)
	assert.Equal(t, "Hello Go\n", doc.ToPlainText())
	expect := NewDelta().Retain(6, nil).Delete(5).Insert("Go", nil)
	if diff := cmp.Diff(expect.Ops(), change.Ops()); diff != "" {
		t.Errorf("replace change mismatch (-want +got):\n%s", diff)
	}

	// zero length delegates to insert
	_, err = doc.Replace(8, 0, "!")
	require.NoError(t, err)
	assert.Equal(t, "Hello Go!\n", doc.ToPlainText())

	// empty text delegates to delete
	_, err = doc.Replace(5, 4, "")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n", doc.ToPlainText())

	_, err = doc.Replace(0, 0, "")
	assert.Error(t, err, "nothing to insert and nothing to delete")
}

func TestDocumentComposeRemoteChange(t *testing.T) {
	doc := mustDocument(t, NewDelta().Insert("abc\n", nil))

	var got Change
	doc.Subscribe(func(c Change) { got = c })

	change := NewDelta().Retain(3, nil).Insert("!", nil)
	require.NoError(t, doc.Compose(change, SourceRemote))
	assert.Equal(t, "abc!\n", doc.ToPlainText())
	assert.Equal(t, SourceRemote, got.Source)

	err := doc.Compose(NewDelta(), SourceRemote)
	assert.Error(t, err, "empty change is a programmer error")
}

func TestDocumentComposeFailureRestores(t *testing.T) {
	doc := mustDocument(t, NewDelta().Insert("abc\n", nil))
	before := doc.ToDelta()

	// walking past the end of the document must fail atomically
	err := doc.Compose(NewDelta().Retain(10, nil).Insert("x", nil).Retain(1, Attributes{"bold": true}), SourceRemote)
	require.Error(t, err)
	assert.True(t, doc.ToDelta().Equal(before), "document delta changed on a failed compose")
	assert.True(t, doc.Root().ToDelta().Equal(before), "tree changed on a failed compose")
}

func TestDocumentCollectStyle(t *testing.T) {
	doc := mustDocument(t, NewDelta().
		Insert("plain ", nil).
		Insert("bold", Attributes{"bold": true}).
		Insert("\n", Attributes{"list": "bullet"}).
		Insert("tail\n", nil))

	style, err := doc.CollectStyle(6, 4)
	require.NoError(t, err)
	assert.True(t, style.ContainsSame(Bold()))
	attr, ok := style.LineStyle()
	require.True(t, ok)
	assert.Equal(t, List(ListBullet), attr)

	style, err = doc.CollectStyle(0, 10)
	require.NoError(t, err)
	assert.False(t, style.Contains(BoldKey), "bold is not on every character")
	assert.True(t, style.Contains(ListKey))

	// caret style: inline from the left, line style from the line
	style, err = doc.CollectStyle(10, 0)
	require.NoError(t, err)
	assert.True(t, style.ContainsSame(Bold()))
	assert.True(t, style.ContainsSame(List(ListBullet)))

	// spanning both lines drops the non-shared line style
	style, err = doc.CollectStyle(6, 7)
	require.NoError(t, err)
	assert.False(t, style.Contains(ListKey))
}

func TestDocumentJSONRoundTrip(t *testing.T) {
	delta := NewDelta().
		Insert("Title", nil).
		Insert("\n", Attributes{"header": 1}).
		Insert("a ", nil).
		Insert("link", Attributes{"link": "https://a"}).
		Insert("\n", Attributes{"list": "ordered"}).
		InsertObject("image", "https://a/p.png", nil).
		Insert("\n", nil)
	doc := mustDocument(t, delta)

	data, err := doc.ToJSON()
	require.NoError(t, err)

	reloaded, err := NewDocumentFromJSON(data)
	require.NoError(t, err)
	assert.True(t, reloaded.ToDelta().Equal(delta))
	assert.Equal(t, doc.ToPlainText(), reloaded.ToPlainText())
}

func TestDocumentLoadRejectsMalformedDeltas(t *testing.T) {
	_, err := NewDocumentFromDelta(NewDelta().Insert("abc", nil))
	assert.Error(t, err, "document must end in a newline")

	_, err = NewDocumentFromDelta(NewDelta().Retain(1, nil).Insert("\n", nil))
	assert.Error(t, err, "document must contain only inserts")

	_, err = NewDocumentFromJSON([]byte(`[{"retain": 3}]`))
	assert.Error(t, err)

	_, err = NewDocumentFromJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestDocumentUnknownAttributeOnLoad(t *testing.T) {
	data := []byte(`[{"insert": "x", "attributes": {"wat": true}}, {"insert": "\n"}]`)

	_, err := NewDocumentFromJSON(data)
	assert.Error(t, err, "unknown attribute keys error by default")

	registry := DefaultAttributeRegistry()
	registry.SetCreateMissing(func(key string, value interface{}) (Attribute, error) {
		return Attribute{Key: key, Scope: ScopeInline, Value: value}, nil
	})
	doc, err := NewDocumentFromJSON(data, WithAttributeRegistry(registry))
	require.NoError(t, err)
	assert.Equal(t, "x\n", doc.ToPlainText())
}

func TestDocumentUnknownEmbedOnLoad(t *testing.T) {
	data := []byte(`[{"insert": {"tweet": "123"}}, {"insert": "\n"}]`)

	// the default policy synthesizes a line-placed embed
	doc, err := NewDocumentFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, "￼\n", doc.ToPlainText())
}

func TestDocumentRulesExhausted(t *testing.T) {
	doc := NewDocument(WithHeuristics(&Heuristics{}))
	_, err := doc.Insert(0, "x")
	assert.ErrorIs(t, err, ErrRulesExhausted)
	_, err = doc.Delete(0, 1)
	assert.ErrorIs(t, err, ErrRulesExhausted)
	_, err = doc.Format(0, 0, Bold())
	assert.ErrorIs(t, err, ErrRulesExhausted)
	_, err = doc.InsertObject(0, HorizontalRule(), nil, Style{})
	assert.ErrorIs(t, err, ErrRulesExhausted)
}

func TestDocumentUndoWithInvert(t *testing.T) {
	doc := mustDocument(t, NewDelta().Insert("hello\n", nil))

	var lastChange, lastBefore *Delta
	doc.Subscribe(func(c Change) {
		lastChange = c.Change
		lastBefore = c.Before
	})

	_, err := doc.Insert(5, " world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", doc.ToPlainText())

	undo := lastChange.Invert(lastBefore)
	require.NoError(t, doc.Compose(undo, SourceLocal))
	assert.Equal(t, "hello\n", doc.ToPlainText())
}
