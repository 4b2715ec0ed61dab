package notus

// ensureEmbedLine adjusts deletions that touch the newlines around a
// line-placed embed so the embed never ends up sharing a line with other
// content: the range is shifted or shrunk to keep those newlines alive.
func ensureEmbedLine(ctx *RuleContext, doc *Delta, index, length int) *Delta {
	it := doc.Iterator()
	prev, hasPrev := it.Skip(index)

	indexDelta, lengthDelta := 0, 0
	remaining := length
	foundEmbed := false
	lineBreakBefore := false

	if hasPrev && isLineEmbed(ctx, prev) {
		foundEmbed = true
		if remaining > 0 {
			candidate := it.Next(1)
			remaining--
			if candidate.StartsWith("\n") {
				// Keep the embed's terminating newline out of the range.
				indexDelta++
				lengthDelta--
			}
		}
	} else {
		lineBreakBefore = !hasPrev || prev.EndsWith("\n")
	}

	if remaining > 0 {
		it.Skip(remaining - 1)
		last := it.Next(1)
		if last.EndsWith("\n") {
			if next, ok := it.Peek(); ok && isLineEmbed(ctx, next) {
				foundEmbed = true
				if !lineBreakBefore {
					// Deleting this newline would pull preceding content
					// onto the embed's line.
					lengthDelta--
				}
			}
		}
	}

	if !foundEmbed {
		return nil
	}
	return NewDelta().Retain(index+indexDelta, nil).Delete(length + lengthDelta)
}

// preserveLineStyleOnMerge handles deletions that start by consuming a
// line's terminating newline. The line merging in from below keeps the
// deleted newline's line style: its attributes are re-applied to the next
// newline, and any line attributes only the lower line had are unset.
func preserveLineStyleOnMerge(ctx *RuleContext, doc *Delta, index, length int) *Delta {
	it := doc.Iterator()
	it.Skip(index)
	target := it.Next(1)
	if !target.StartsWith("\n") {
		return nil
	}
	it.Skip(length - 1)

	if !it.HasNext() {
		// The range swallows the document's trailing newline; keep it.
		return NewDelta().Retain(index, nil).Delete(length - 1)
	}

	result := NewDelta().Retain(index, nil).Delete(length)
	for it.HasNext() {
		op := it.Next(0)
		lf := op.IndexOfNewline()
		if lf < 0 {
			result.Retain(op.Len(), nil)
			continue
		}
		attrs := Attributes{}
		for key := range op.Attributes {
			attrs[key] = nil
		}
		for key, value := range target.Attributes {
			attrs[key] = value
		}
		if len(attrs) == 0 {
			attrs = nil
		}
		result.Retain(lf, nil).Retain(1, attrs)
		break
	}
	return result
}

// catchAllDelete applies the deletion literally.
func catchAllDelete(ctx *RuleContext, doc *Delta, index, length int) *Delta {
	return NewDelta().Retain(index, nil).Delete(length)
}
