package notus

import "errors"

// ErrRulesExhausted reports that no rule in a pipeline produced a result.
// The default pipelines end in catch-alls, so hitting this means a custom
// pipeline is missing one.
var ErrRulesExhausted = errors.New("notus: heuristic rules exhausted without a result")

// RuleContext gives rules access to the document's registries so they can
// distinguish line from inline attributes and resolve embed placement.
type RuleContext struct {
	Attributes *AttributeRegistry
	Embeds     *EmbedRegistry
}

// InsertRule rewrites a text insertion into a change delta, or returns nil
// to yield to the next rule.
type InsertRule func(ctx *RuleContext, doc *Delta, index int, text string) *Delta

// InsertObjectRule rewrites an embed insertion, or returns nil to yield.
type InsertObjectRule func(ctx *RuleContext, doc *Delta, index int, embedType EmbedType, value interface{}, style Style) *Delta

// FormatRule rewrites a formatting intent, or returns nil to yield.
type FormatRule func(ctx *RuleContext, doc *Delta, index, length int, attr Attribute) *Delta

// DeleteRule rewrites a deletion, or returns nil to yield.
type DeleteRule func(ctx *RuleContext, doc *Delta, index, length int) *Delta

// Heuristics holds the four ordered rule pipelines. The first rule to
// return a non-nil delta wins; custom pipelines must keep a catch-all
// last.
type Heuristics struct {
	Insert       []InsertRule
	InsertObject []InsertObjectRule
	Format       []FormatRule
	Delete       []DeleteRule
}

// DefaultHeuristics returns the fallback pipelines.
func DefaultHeuristics() *Heuristics {
	return &Heuristics{
		Insert: []InsertRule{
			preserveBlockStyleOnPaste,
			forceNewlineAroundEmbeds,
			preserveLineStyleOnSplit,
			autoExitBlock,
			resetLineFormatOnNewline,
			autoFormatLinks,
			preserveInlineStyles,
			catchAllInsert,
		},
		InsertObject: []InsertObjectRule{
			insertLineEmbed,
			catchAllInsertObject,
		},
		Format: []FormatRule{
			formatLinkAtCaret,
			resolveLineFormat,
			resolveInlineFormat,
			catchAllFormat,
		},
		Delete: []DeleteRule{
			ensureEmbedLine,
			preserveLineStyleOnMerge,
			catchAllDelete,
		},
	}
}

func (h *Heuristics) applyInsert(ctx *RuleContext, doc *Delta, index int, text string) (*Delta, error) {
	for _, rule := range h.Insert {
		if result := rule(ctx, doc, index, text); result != nil {
			return result.Trim(), nil
		}
	}
	return nil, ErrRulesExhausted
}

func (h *Heuristics) applyInsertObject(ctx *RuleContext, doc *Delta, index int, embedType EmbedType, value interface{}, style Style) (*Delta, error) {
	for _, rule := range h.InsertObject {
		if result := rule(ctx, doc, index, embedType, value, style); result != nil {
			return result.Trim(), nil
		}
	}
	return nil, ErrRulesExhausted
}

func (h *Heuristics) applyFormat(ctx *RuleContext, doc *Delta, index, length int, attr Attribute) (*Delta, error) {
	for _, rule := range h.Format {
		if result := rule(ctx, doc, index, length, attr); result != nil {
			return result.Trim(), nil
		}
	}
	return nil, ErrRulesExhausted
}

func (h *Heuristics) applyDelete(ctx *RuleContext, doc *Delta, index, length int) (*Delta, error) {
	for _, rule := range h.Delete {
		if result := rule(ctx, doc, index, length); result != nil {
			return result.Trim(), nil
		}
	}
	return nil, ErrRulesExhausted
}

// lineScopedOnly filters an op's attributes down to the line-scoped keys.
func lineScopedOnly(ctx *RuleContext, attrs Attributes) Attributes {
	var out Attributes
	for k, v := range attrs {
		if scope, ok := ctx.Attributes.Scope(k); ok && scope == ScopeLine {
			if out == nil {
				out = Attributes{}
			}
			out[k] = v
		}
	}
	return out
}

// isLineEmbed reports whether the op inserts a line-placed embed.
func isLineEmbed(ctx *RuleContext, op Op) bool {
	if op.Kind != OpInsertObject {
		return false
	}
	t, err := ctx.Embeds.Get(op.Key, op.Value)
	return err == nil && t.Placement == PlacementLine
}
