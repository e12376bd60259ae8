package generate

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Template names.
const (
	TemplateBrief   = "brief"
	TemplateArticle = "article"
)

// Templates holds the prompt templates used by the generator.
type Templates struct {
	Brief   string
	Article string
}

// LoadTemplates returns the embedded templates, replaced by <name>.txt files
// found in dir when dir is set.
func LoadTemplates(dir string) (Templates, error) {
	var t Templates
	for _, entry := range []struct {
		name string
		dest *string
	}{
		{TemplateBrief, &t.Brief},
		{TemplateArticle, &t.Article},
	} {
		raw, err := fs.ReadFile(embeddedPrompts, "prompts/"+entry.name+".txt")
		if err != nil {
			return Templates{}, fmt.Errorf("read embedded %s template: %w", entry.name, err)
		}
		*entry.dest = string(raw)

		if dir == "" {
			continue
		}
		override, err := os.ReadFile(filepath.Join(dir, entry.name+".txt"))
		switch {
		case err == nil:
			*entry.dest = string(override)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Templates{}, fmt.Errorf("read %s template from %s: %w", entry.name, dir, err)
		}
	}
	return t, nil
}

// Render substitutes {{name}} placeholders verbatim. Unknown placeholders are
// left in place.
func Render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for name, value := range values {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
