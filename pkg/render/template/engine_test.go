package template

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"
)

func newTestEngine(t *testing.T, files fstest.MapFS, options ...Option) *Engine {
	t.Helper()
	opts := append([]Option{WithFS(files)}, options...)
	engine, err := New(opts...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestNew_RequiresSource(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected error without template source")
	}
}

func TestRenderTemplate_FromFS(t *testing.T) {
	engine := newTestEngine(t, fstest.MapFS{
		"greeting.tmpl": &fstest.MapFile{Data: []byte("Hello {{ name }}!")},
	})

	out, err := engine.RenderTemplate("greeting", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello Ada!" {
		t.Fatalf("unexpected output %q", out)
	}

	// The extension is appended only when missing.
	out, err = engine.RenderTemplate("greeting.tmpl", map[string]any{"name": "Ada"})
	if err != nil {
		t.Fatalf("render with extension: %v", err)
	}
	if out != "Hello Ada!" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderTemplate_Missing(t *testing.T) {
	engine := newTestEngine(t, fstest.MapFS{})
	if _, err := engine.RenderTemplate("missing", nil); err == nil {
		t.Fatalf("expected error for missing template")
	}
}

func TestRender_DispatchesInlineContent(t *testing.T) {
	engine := newTestEngine(t, fstest.MapFS{
		"named.tmpl": &fstest.MapFile{Data: []byte("from file")},
	})

	out, err := engine.Render("{{ value }}", map[string]any{"value": "inline"})
	if err != nil {
		t.Fatalf("render inline: %v", err)
	}
	if out != "inline" {
		t.Fatalf("unexpected output %q", out)
	}

	out, err = engine.Render("named", nil)
	if err != nil {
		t.Fatalf("render named: %v", err)
	}
	if out != "from file" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderTemplate_StructData(t *testing.T) {
	engine := newTestEngine(t, fstest.MapFS{
		"view.tmpl": &fstest.MapFile{Data: []byte("{{ title }}: {% for item in items %}{{ item.label }} {% endfor %}")},
	})

	view := struct {
		Title string `json:"title"`
		Items []struct {
			Label string `json:"label"`
		} `json:"items"`
	}{
		Title: "Steps",
		Items: []struct {
			Label string `json:"label"`
		}{{Label: "one"}, {Label: "two"}},
	}

	out, err := engine.RenderTemplate("view", view)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Steps: one two " {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRenderTemplate_WritesToWriter(t *testing.T) {
	engine := newTestEngine(t, fstest.MapFS{
		"page.tmpl": &fstest.MapFile{Data: []byte("content")},
	})

	var buf bytes.Buffer
	out, err := engine.RenderTemplate("page", nil, &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "content" || buf.String() != "content" {
		t.Fatalf("expected output mirrored to writer, got %q / %q", out, buf.String())
	}
}

func TestGlobalContext(t *testing.T) {
	engine := newTestEngine(t, fstest.MapFS{
		"page.tmpl": &fstest.MapFile{Data: []byte("{{ site }} {{ local }}")},
	}, WithGlobalData(map[string]any{"site": "formflow"}))

	out, err := engine.RenderTemplate("page", map[string]any{"local": "value"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "formflow") || !strings.Contains(out, "value") {
		t.Fatalf("expected global and local data merged, got %q", out)
	}
}

func TestWithExtension_Normalizes(t *testing.T) {
	engine := newTestEngine(t, fstest.MapFS{
		"page.html": &fstest.MapFile{Data: []byte("html content")},
	}, WithExtension("html"))

	out, err := engine.RenderTemplate("page", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "html content" {
		t.Fatalf("unexpected output %q", out)
	}
}
