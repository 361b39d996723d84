// Package htmlform renders a nomination definition as a static multi-step
// HTML form. Field resolution happens in Go; the templates stay presentation
// only.
package htmlform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/microcosm-cc/bluemonday"

	"github.com/rareaward/formflow/pkg/nomination"
	"github.com/rareaward/formflow/pkg/render"
	"github.com/rareaward/formflow/pkg/render/template"
)

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS fs.FS
	engine     template.Renderer
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templateFS = files
		}
	}
}

// WithTemplateEngine injects a custom template engine implementation.
func WithTemplateEngine(engine template.Renderer) Option {
	return func(cfg *config) {
		if engine != nil {
			cfg.engine = engine
		}
	}
}

// Renderer implements render.Renderer for the static site output.
type Renderer struct {
	engine    template.Renderer
	sanitizer *bluemonday.Policy
}

// New constructs the HTML form renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	engine := cfg.engine
	if engine == nil {
		built, err := template.New(
			template.WithFS(cfg.templateFS),
			template.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("htmlform: configure template engine: %w", err)
		}
		engine = built
	}

	return &Renderer{
		engine: engine,
		// Help text may carry simple inline markup from definition authors;
		// everything else is stripped.
		sanitizer: bluemonday.UGCPolicy(),
	}, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string { return "htmlform" }

// ContentType reports the output media type.
func (r *Renderer) ContentType() string { return "text/html; charset=utf-8" }

// Render produces the full form page.
func (r *Renderer) Render(ctx context.Context, def nomination.Definition, options render.Options) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("htmlform: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view := r.buildView(def, options)
	out, err := r.engine.RenderTemplate("form", view)
	if err != nil {
		return nil, fmt.Errorf("htmlform: render form: %w", err)
	}
	return []byte(out), nil
}

type formView struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Endpoint    string     `json:"endpoint"`
	Method      string     `json:"method"`
	StepCount   int        `json:"stepCount"`
	Steps       []stepView `json:"steps"`
	ThemeName   string     `json:"themeName"`
	Tokens      []token    `json:"tokens"`
}

type token struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type stepView struct {
	ID          string      `json:"id"`
	Index       int         `json:"index"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Fields      []fieldView `json:"fields"`
}

type fieldView struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Label       string       `json:"label"`
	Placeholder string       `json:"placeholder"`
	Help        string       `json:"help"`
	Required    bool         `json:"required"`
	Value       string       `json:"value"`
	Error       string       `json:"error"`
	Options     []optionView `json:"options"`
}

type optionView struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

func (r *Renderer) buildView(def nomination.Definition, options render.Options) formView {
	view := formView{
		ID:          def.ID,
		Title:       def.Title,
		Description: r.sanitizer.Sanitize(def.Description),
		Endpoint:    def.Endpoint,
		Method:      def.Method,
		StepCount:   def.StepCount(),
	}

	if options.Theme != nil {
		view.ThemeName = options.Theme.Theme
		if options.Theme.Manifest != nil {
			for name, value := range options.Theme.Manifest.Tokens {
				view.Tokens = append(view.Tokens, token{Name: name, Value: value})
			}
		}
	}

	for i, step := range def.Steps {
		sv := stepView{
			ID:          step.ID,
			Index:       i + 1,
			Title:       step.Title,
			Description: r.sanitizer.Sanitize(step.Description),
		}
		for _, field := range step.Fields {
			sv.Fields = append(sv.Fields, r.buildFieldView(field, options))
		}
		view.Steps = append(view.Steps, sv)
	}
	return view
}

func (r *Renderer) buildFieldView(field nomination.Field, options render.Options) fieldView {
	fv := fieldView{
		Name:        field.Name,
		Type:        string(field.Type),
		Label:       field.Label,
		Placeholder: field.Placeholder,
		Help:        r.sanitizer.Sanitize(field.Help),
		Required:    field.Required,
	}
	if fv.Label == "" {
		fv.Label = field.Name
	}

	value := options.Values[field.Name]
	selected := selectedSet(value)
	if value != nil {
		if _, multi := value.([]string); !multi {
			if _, multiAny := value.([]any); !multiAny {
				fv.Value = fmt.Sprint(value)
			}
		}
	}

	for _, option := range field.Options {
		label := option.Label
		if label == "" {
			label = option.Value
		}
		fv.Options = append(fv.Options, optionView{
			Value:    option.Value,
			Label:    label,
			Selected: selected[option.Value],
		})
	}

	if messages := options.Errors[field.Name]; len(messages) > 0 {
		fv.Error = messages[0]
	}
	return fv
}

func selectedSet(value any) map[string]bool {
	out := make(map[string]bool)
	switch v := value.(type) {
	case nil:
	case []string:
		for _, item := range v {
			out[item] = true
		}
	case []any:
		for _, item := range v {
			out[fmt.Sprint(item)] = true
		}
	default:
		out[fmt.Sprint(v)] = true
	}
	return out
}
