package notus

// insertLineEmbed places a line-placed embed on its own line. An embed
// dropped on an empty line slots straight in; anywhere else the line is
// split around it: a leading newline preserving the current line's style
// when the previous character is not a newline, and a plain trailing
// newline when the next character is not one.
func insertLineEmbed(ctx *RuleContext, doc *Delta, index int, embedType EmbedType, value interface{}, style Style) *Delta {
	if embedType.Placement != PlacementLine {
		return nil
	}
	it := doc.Iterator()
	prev, hasPrev := it.Skip(index)
	next, hasNext := it.Peek()
	prevNewline := !hasPrev || prev.EndsWith("\n")
	nextNewline := hasNext && next.StartsWith("\n")

	result := NewDelta().Retain(index, nil)
	if !prevNewline {
		// Close the current line first, carrying its style over.
		var lineAttrs Attributes
		for it.HasNext() {
			op := it.Next(0)
			if op.IndexOfNewline() >= 0 {
				lineAttrs = lineScopedOnly(ctx, op.Attributes)
				break
			}
		}
		result.Insert("\n", lineAttrs)
	}
	result.InsertObject(embedType.Key, value, style.ToAttributes())
	if !nextNewline {
		result.Insert("\n", nil)
	}
	return result
}

// catchAllInsertObject inserts the embed verbatim with the provided
// inline style.
func catchAllInsertObject(ctx *RuleContext, doc *Delta, index int, embedType EmbedType, value interface{}, style Style) *Delta {
	return NewDelta().Retain(index, nil).InsertObject(embedType.Key, value, style.ToAttributes())
}
