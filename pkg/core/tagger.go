package core

import "context"

// Tagger produces the aligned tag sequence (CAT) for normalized code: one tag
// per whitespace separated token.
type Tagger interface {
	GenerateTags(ctx context.Context, normalized string) ([]string, error)
}

// TaggerFunc adapts a function to the Tagger interface.
type TaggerFunc func(ctx context.Context, normalized string) ([]string, error)

func (f TaggerFunc) GenerateTags(ctx context.Context, normalized string) ([]string, error) {
	return f(ctx, normalized)
}
