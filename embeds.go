package notus

import "fmt"

// EmbedPlacement says how an embed sits relative to text.
type EmbedPlacement uint8

const (
	// PlacementInline embeds sit alongside text within a line.
	PlacementInline EmbedPlacement = iota + 1
	// PlacementLine embeds are the only child of their line.
	PlacementLine
)

func (p EmbedPlacement) String() string {
	switch p {
	case PlacementInline:
		return "inline"
	case PlacementLine:
		return "line"
	}
	return "unknown"
}

// Keys of the fallback embed set.
const (
	HorizontalRuleKey = "hr"
	ImageKey          = "image"
)

// EmbedType classifies a family of embeds under one key: where its embeds
// are placed and how a value renders as plain text for hosts.
type EmbedType struct {
	Key       string
	Placement EmbedPlacement
	Stringify func(value interface{}) string
}

// HorizontalRule is the fallback horizontal-rule embed type.
func HorizontalRule() EmbedType {
	return EmbedType{
		Key:       HorizontalRuleKey,
		Placement: PlacementLine,
		Stringify: func(interface{}) string { return "---" },
	}
}

// Image is the fallback image embed type. Its value is the image source.
func Image() EmbedType {
	return EmbedType{
		Key:       ImageKey,
		Placement: PlacementLine,
		Stringify: func(value interface{}) string { return fmt.Sprintf("[image: %v]", value) },
	}
}

// CreateMissingEmbed decides what to do with an embed key the registry
// does not recognize.
type CreateMissingEmbed func(key string, value interface{}) (EmbedType, error)

// EmbedRegistry maps embed keys to their types. Read-only after document
// construction; safe to share across documents.
type EmbedRegistry struct {
	types         map[string]EmbedType
	createMissing CreateMissingEmbed
}

// NewEmbedRegistry returns an empty registry. Its default missing-key
// policy synthesizes a line-placed embed type for the unknown key, so
// documents written by a richer host still load; hosts that prefer to
// fail install their own policy with SetCreateMissing.
func NewEmbedRegistry() *EmbedRegistry {
	return &EmbedRegistry{
		types: map[string]EmbedType{},
		createMissing: func(key string, value interface{}) (EmbedType, error) {
			return EmbedType{
				Key:       key,
				Placement: PlacementLine,
				Stringify: func(value interface{}) string { return fmt.Sprintf("[%s: %v]", key, value) },
			}, nil
		},
	}
}

// DefaultEmbedRegistry returns the fallback registry: hr and image.
func DefaultEmbedRegistry() *EmbedRegistry {
	r := NewEmbedRegistry()
	r.Register(HorizontalRule())
	r.Register(Image())
	return r
}

// Register adds or replaces an embed type under its key.
func (r *EmbedRegistry) Register(t EmbedType) { r.types[t.Key] = t }

// SetCreateMissing replaces the missing-key policy.
func (r *EmbedRegistry) SetCreateMissing(fn CreateMissingEmbed) { r.createMissing = fn }

// Get resolves a key and value to an embed type, consulting the
// missing-key policy for unknown keys.
func (r *EmbedRegistry) Get(key string, value interface{}) (EmbedType, error) {
	if t, ok := r.types[key]; ok {
		return t, nil
	}
	return r.createMissing(key, value)
}
