// Package printable renders a filled nomination as a single print-friendly
// page, the engine-side counterpart of the site's print feature.
package printable

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/rareaward/formflow/pkg/nomination"
	"github.com/rareaward/formflow/pkg/render"
	"github.com/rareaward/formflow/pkg/render/template"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// Renderer implements render.Renderer for print output.
type Renderer struct {
	engine template.Renderer
}

// New constructs the printable renderer.
func New() (*Renderer, error) {
	files, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, fmt.Errorf("printable: embedded templates: %w", err)
	}
	engine, err := template.New(
		template.WithFS(files),
		template.WithExtension(".tmpl"),
	)
	if err != nil {
		return nil, fmt.Errorf("printable: configure template engine: %w", err)
	}
	return &Renderer{engine: engine}, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string { return "printable" }

// ContentType reports the output media type.
func (r *Renderer) ContentType() string { return "text/html; charset=utf-8" }

// Render produces the print page with every answered field laid out in
// definition order. Unanswered fields print as an em-dash placeholder.
func (r *Renderer) Render(ctx context.Context, def nomination.Definition, options render.Options) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("printable: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type entry struct {
		Label string `json:"label"`
		Value string `json:"value"`
	}
	type section struct {
		Title   string  `json:"title"`
		Entries []entry `json:"entries"`
	}

	view := struct {
		Title       string    `json:"title"`
		GeneratedAt string    `json:"generatedAt"`
		Sections    []section `json:"sections"`
	}{
		Title:       def.Title,
		GeneratedAt: time.Now().Format("January 2, 2006"),
	}

	for _, step := range def.Steps {
		sec := section{Title: step.Title}
		for _, field := range step.Fields {
			sec.Entries = append(sec.Entries, entry{
				Label: labelOf(field),
				Value: displayValue(field, options.Values[field.Name]),
			})
		}
		view.Sections = append(view.Sections, sec)
	}

	out, err := r.engine.RenderTemplate("print", view)
	if err != nil {
		return nil, fmt.Errorf("printable: render: %w", err)
	}
	return []byte(out), nil
}

func labelOf(field nomination.Field) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func displayValue(field nomination.Field, value any) string {
	texts := flatten(value)
	if len(texts) == 0 {
		return "—"
	}

	// Map option values back to their display labels where possible.
	if len(field.Options) > 0 {
		labels := make(map[string]string, len(field.Options))
		for _, option := range field.Options {
			if option.Label != "" {
				labels[option.Value] = option.Label
			}
		}
		for i, text := range texts {
			if label, ok := labels[text]; ok {
				texts[i] = label
			}
		}
	}
	return strings.Join(texts, ", ")
}

func flatten(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}
