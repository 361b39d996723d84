// Package render turns nomination definitions into static output: the public
// HTML form and a print-friendly summary. Renderers register by name so the
// CLI and tests can pick one without compile-time coupling.
package render

import (
	"context"

	theme "github.com/goliatone/go-theme"

	"github.com/rareaward/formflow/pkg/nomination"
)

// Renderer converts a Definition into a byte representation (HTML, text).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, def nomination.Definition, options Options) ([]byte, error)
}

// Options describe per-request data renderers can use without mutating the
// definition pipeline.
type Options struct {
	// Values pre-populates rendered controls keyed by field name.
	Values map[string]any
	// Errors surfaces validation feedback keyed by field name. Renderers map
	// these into inline markup near the offending control.
	Errors map[string][]string
	// Theme optionally carries design tokens the renderer folds into the
	// output. Nil means the renderer's defaults.
	Theme *theme.Selection
}
