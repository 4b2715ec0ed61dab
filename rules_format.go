package notus

import (
	"reflect"
	"unicode/utf8"
)

// formatLinkAtCaret widens a zero-length link format to the whole link run
// under the caret. When the ops on both sides of the caret carry the same
// link, they are one run and the full run is re-formatted to the new
// value.
func formatLinkAtCaret(ctx *RuleContext, doc *Delta, index, length int, attr Attribute) *Delta {
	if attr.Key != LinkKey || length != 0 {
		return nil
	}
	it := doc.Iterator()
	before, hasBefore := it.Skip(index)
	after, hasAfter := it.Peek()
	if !hasBefore || !hasAfter {
		return nil
	}
	beforeLink, ok := before.Attributes[LinkKey]
	if !ok || beforeLink == nil {
		return nil
	}
	afterLink, ok := after.Attributes[LinkKey]
	if !ok || !reflect.DeepEqual(beforeLink, afterLink) {
		return nil
	}
	return NewDelta().
		Retain(index-before.Len(), nil).
		Retain(before.Len()+after.Len(), Attributes{attr.Key: attr.Value})
}

// resolveLineFormat applies a line-scoped attribute to every newline in
// [index, index+length) and to the next newline past the range, so a
// zero-length format at any caret position formats its line. Other
// line-scoped attributes present on a target newline are unset.
func resolveLineFormat(ctx *RuleContext, doc *Delta, index, length int, attr Attribute) *Delta {
	if attr.Scope != ScopeLine {
		return nil
	}
	result := NewDelta().Retain(index, nil)
	it := doc.Iterator()
	it.Skip(index)

	remaining := length
	for remaining > 0 && it.HasNext() {
		op := it.Next(remaining)
		remaining -= op.Len()
		if !op.ContainsNewline() {
			result.Retain(op.Len(), nil)
			continue
		}
		segments := op.Split("\n")
		for i, seg := range segments {
			result.Retain(utf8.RuneCountInString(seg), nil)
			if i < len(segments)-1 {
				result.Retain(1, lineFormatAttributes(ctx, op.Attributes, attr))
			}
		}
	}

	for it.HasNext() {
		op := it.Next(0)
		lf := op.IndexOfNewline()
		if lf < 0 {
			result.Retain(op.Len(), nil)
			continue
		}
		result.Retain(lf, nil)
		result.Retain(1, lineFormatAttributes(ctx, op.Attributes, attr))
		break
	}
	return result
}

// lineFormatAttributes builds the attributes applying attr to a newline
// that currently carries existing, unsetting every other line-scoped key.
func lineFormatAttributes(ctx *RuleContext, existing Attributes, attr Attribute) Attributes {
	out := Attributes{attr.Key: attr.Value}
	for k := range existing {
		if k == attr.Key {
			continue
		}
		if scope, ok := ctx.Attributes.Scope(k); ok && scope == ScopeLine {
			out[k] = nil
		}
	}
	return out
}

// resolveInlineFormat applies an inline attribute to every non-newline
// character in the range; newlines pass through unformatted.
func resolveInlineFormat(ctx *RuleContext, doc *Delta, index, length int, attr Attribute) *Delta {
	if attr.Scope != ScopeInline {
		return nil
	}
	result := NewDelta().Retain(index, nil)
	it := doc.Iterator()
	it.Skip(index)
	remaining := length
	for remaining > 0 && it.HasNext() {
		op := it.Next(remaining)
		remaining -= op.Len()
		if !op.ContainsNewline() {
			result.Retain(op.Len(), Attributes{attr.Key: attr.Value})
			continue
		}
		segments := op.Split("\n")
		for i, seg := range segments {
			if seg != "" {
				result.Retain(utf8.RuneCountInString(seg), Attributes{attr.Key: attr.Value})
			}
			if i < len(segments)-1 {
				result.Retain(1, nil)
			}
		}
	}
	return result
}

// catchAllFormat guarantees pipeline termination by applying the
// attribute over the range verbatim.
func catchAllFormat(ctx *RuleContext, doc *Delta, index, length int, attr Attribute) *Delta {
	return NewDelta().Retain(index, nil).Retain(length, Attributes{attr.Key: attr.Value})
}
