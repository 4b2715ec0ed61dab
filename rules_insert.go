package notus

import (
	"net/url"
	"reflect"
	"strings"
	"unicode/utf8"
)

// preserveBlockStyleOnPaste handles multi-line insertions. The line style
// of the insertion point is captured from its terminating newline and
// applied to the pasted line breaks: lists, quotes and code propagate to
// every pasted line, while headings apply only to the first and are unset
// on the rest and on the original line's newline.
func preserveBlockStyleOnPaste(ctx *RuleContext, doc *Delta, index int, text string) *Delta {
	if !strings.Contains(text, "\n") || utf8.RuneCountInString(text) <= 1 {
		return nil
	}

	it := doc.Iterator()
	it.Skip(index)
	var lineAttrs Attributes
	for it.HasNext() {
		op := it.Next(0)
		if op.IndexOfNewline() >= 0 {
			lineAttrs = lineScopedOnly(ctx, op.Attributes)
			break
		}
	}
	heading := false
	if v, ok := lineAttrs[HeaderKey]; ok && v != nil {
		heading = true
	}

	result := NewDelta().Retain(index, nil)
	segments := strings.Split(text, "\n")
	for i, seg := range segments {
		if seg != "" {
			result.Insert(seg, nil)
		}
		if i == len(segments)-1 {
			break
		}
		switch {
		case i == 0 || !heading:
			result.Insert("\n", lineAttrs)
		default:
			result.Insert("\n", Attributes{HeaderKey: nil})
		}
	}

	if heading {
		// The original newline now terminates pasted content; it stops
		// being a heading.
		scan := doc.Iterator()
		scan.Skip(index)
		run := 0
		for scan.HasNext() {
			op := scan.Next(0)
			lf := op.IndexOfNewline()
			if lf < 0 {
				run += op.Len()
				continue
			}
			result.Retain(run+lf, nil).Retain(1, Attributes{HeaderKey: nil})
			break
		}
	}
	return result
}

// forceNewlineAroundEmbeds wraps text inserted next to a line-placed embed
// in line breaks so the embed keeps its own line.
func forceNewlineAroundEmbeds(ctx *RuleContext, doc *Delta, index int, text string) *Delta {
	it := doc.Iterator()
	prev, hasPrev := it.Skip(index)
	next, hasNext := it.Peek()
	prevEmbed := hasPrev && isLineEmbed(ctx, prev)
	nextEmbed := hasNext && isLineEmbed(ctx, next)
	if !prevEmbed && !nextEmbed {
		return nil
	}
	result := NewDelta().Retain(index, nil)
	if prevEmbed {
		result.Insert("\n", nil)
	}
	result.Insert(text, nil)
	if nextEmbed {
		result.Insert("\n", nil)
	}
	return result
}

// preserveLineStyleOnSplit keeps the line style when a line is split in
// the middle: the new line break copies the attributes of the line's
// terminating newline, so splitting a list item yields two list items.
func preserveLineStyleOnSplit(ctx *RuleContext, doc *Delta, index int, text string) *Delta {
	if text != "\n" {
		return nil
	}
	it := doc.Iterator()
	prev, hasPrev := it.Skip(index)
	if !hasPrev || prev.EndsWith("\n") {
		return nil
	}
	target, hasTarget := it.Peek()
	if !hasTarget || target.StartsWith("\n") {
		return nil
	}
	result := NewDelta().Retain(index, nil)
	if target.ContainsNewline() {
		// The terminating newline lives in this op; its style needs no
		// copying.
		return result.Insert("\n", nil)
	}
	it.Next(0)
	for it.HasNext() {
		op := it.Next(0)
		if op.IndexOfNewline() >= 0 {
			return result.Insert("\n", op.Attributes.Clone())
		}
	}
	return result.Insert("\n", nil)
}

// autoExitBlock leaves a block when Enter is pressed on an empty line
// carrying a set line-scoped attribute: instead of a new line, the
// attribute is unset on the caret's newline.
func autoExitBlock(ctx *RuleContext, doc *Delta, index int, text string) *Delta {
	if text != "\n" {
		return nil
	}
	it := doc.Iterator()
	prev, hasPrev := it.Skip(index)
	target, hasTarget := it.Peek()
	if !hasTarget || !target.StartsWith("\n") {
		return nil
	}
	if hasPrev && !prev.EndsWith("\n") {
		return nil
	}
	for key, value := range target.Attributes {
		if value == nil {
			continue
		}
		if scope, ok := ctx.Attributes.Scope(key); ok && scope == ScopeLine {
			return NewDelta().Retain(index, nil).Retain(1, Attributes{key: nil})
		}
	}
	return nil
}

// resetLineFormatOnNewline stops headings from propagating: Enter at the
// end of a heading keeps the heading on the current line and unsets it on
// the one that follows.
func resetLineFormatOnNewline(ctx *RuleContext, doc *Delta, index int, text string) *Delta {
	if text != "\n" {
		return nil
	}
	it := doc.Iterator()
	it.Skip(index)
	target, hasTarget := it.Peek()
	if !hasTarget || !target.StartsWith("\n") {
		return nil
	}
	if v, ok := target.Attributes[HeaderKey]; !ok || v == nil {
		return nil
	}
	return NewDelta().
		Retain(index, nil).
		Insert("\n", target.Attributes.Clone()).
		Retain(1, Attributes{HeaderKey: nil})
}

// autoFormatLinks turns the word before a freshly typed space into a link
// when it parses as an absolute http(s) URL and is not linked already.
func autoFormatLinks(ctx *RuleContext, doc *Delta, index int, text string) *Delta {
	if text != " " {
		return nil
	}
	it := doc.Iterator()
	prev, hasPrev := it.Skip(index)
	if !hasPrev || prev.Kind != OpInsert {
		return nil
	}
	candidate := prev.Text
	if cut := strings.LastIndexAny(candidate, " \n"); cut >= 0 {
		candidate = candidate[cut+1:]
	}
	if candidate == "" {
		return nil
	}
	u, err := url.Parse(candidate)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil
	}
	if _, linked := prev.Attributes[LinkKey]; linked {
		return nil
	}
	n := utf8.RuneCountInString(candidate)
	return NewDelta().
		Retain(index-n, nil).
		Retain(n, Attributes{LinkKey: candidate}).
		Insert(text, prev.Attributes.Clone())
}

// preserveInlineStyles carries the preceding op's inline style onto
// inserted text. Links are the exception: they extend only when the
// following op continues the same link, so typing at a link boundary does
// not grow the link.
func preserveInlineStyles(ctx *RuleContext, doc *Delta, index int, text string) *Delta {
	if strings.Contains(text, "\n") {
		return nil
	}
	it := doc.Iterator()
	prev, hasPrev := it.Skip(index)
	if !hasPrev || prev.ContainsNewline() {
		return nil
	}
	if !prev.HasAttributes() {
		return NewDelta().Retain(index, nil).Insert(text, nil)
	}
	attrs := prev.Attributes.Clone()
	if linkValue, hasLink := attrs[LinkKey]; hasLink {
		next, hasNext := it.Peek()
		if !hasNext || !reflect.DeepEqual(next.Attributes[LinkKey], linkValue) {
			delete(attrs, LinkKey)
			if len(attrs) == 0 {
				attrs = nil
			}
		}
	}
	return NewDelta().Retain(index, nil).Insert(text, attrs)
}

// catchAllInsert inserts the text verbatim with no formatting.
func catchAllInsert(ctx *RuleContext, doc *Delta, index int, text string) *Delta {
	return NewDelta().Retain(index, nil).Insert(text, nil)
}
