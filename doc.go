// Package notus implements the document engine of a rich-text editor: a
// structured, attributed text model that accepts edit intents (insert,
// delete, format, insert-embed, replace), rewrites them through a pipeline
// of heuristic rules, and composes the rewritten change into both a flat
// operational log (a Delta) and an equivalent node tree
// (root → blocks → lines → leaves).
//
// A Delta is an ordered, normalized sequence of retain, insert and delete
// operations. A delta made purely of inserts describes a document; any
// delta describes a change to one. Deltas compose associatively, serialize
// to a documented JSON array, and can be inverted and transformed, which
// makes the engine's change stream suitable for undo/redo and for layering
// operational transformation on top.
//
// The tree view of the same document groups characters into lines
// terminated by '\n', lines into blocks sharing a line style, and
// everything under a single root. After every edit the engine asserts that
// flattening the tree reproduces the composed Delta, so the two views can
// never drift apart.
//
// Edits never reach the document verbatim. Each edit intent runs through an
// ordered list of heuristic rules that encode editor behaviour: splitting
// a list item produces two list items, a second Enter on an empty quote
// line leaves the quote, typing a space after a URL links it, embeds stay
// alone on their line. The first rule that recognises the situation
// produces the rewritten change; every pipeline ends in a catch-all.
//
// The engine is single-threaded and synchronous per document. Hosts
// subscribe to the change stream and receive (before, change, source)
// triples in edit order, after the tree and delta are consistent.
package notus
