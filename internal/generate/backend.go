package generate

import (
	"context"
	"fmt"
	"strings"
)

// Backend produces text from a prompt.
type Backend interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

const placeholderExcerptLength = 500

// Placeholder is the offline backend. Its output is deterministic and embeds
// the beginning of the prompt.
type Placeholder struct{}

// Generate implements Backend.
func (Placeholder) Generate(_ context.Context, prompt string, _ float64, _ int) (string, error) {
	excerpt := strings.Join(strings.Fields(prompt), " ")
	if runes := []rune(excerpt); len(runes) > placeholderExcerptLength {
		excerpt = string(runes[:placeholderExcerptLength]) + "…"
	}
	return fmt.Sprintf("[Contenu provisoire, génération automatique indisponible]\n\n%s", excerpt), nil
}
