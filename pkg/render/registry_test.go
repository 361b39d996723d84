package render

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rareaward/formflow/pkg/nomination"
)

type stubRenderer struct {
	name string
}

func (s *stubRenderer) Name() string        { return s.name }
func (s *stubRenderer) ContentType() string { return "text/plain" }
func (s *stubRenderer) Render(context.Context, nomination.Definition, Options) ([]byte, error) {
	return []byte(s.name), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&stubRenderer{name: "htmlform"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	renderer, err := registry.Get("htmlform")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if renderer.Name() != "htmlform" {
		t.Fatalf("unexpected renderer %q", renderer.Name())
	}

	if _, err := registry.Get("missing"); err == nil {
		t.Fatalf("expected error for unknown renderer")
	}
}

func TestRegistry_RejectsDuplicatesAndInvalid(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(&stubRenderer{name: "printable"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(&stubRenderer{name: "printable"}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatalf("expected nil renderer to fail")
	}
	if err := registry.Register(&stubRenderer{}); err == nil {
		t.Fatalf("expected empty name to fail")
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	registry := NewRegistry()
	for _, name := range []string{"printable", "htmlform"} {
		registry.MustRegister(&stubRenderer{name: name})
	}

	if diff := cmp.Diff([]string{"htmlform", "printable"}, registry.List()); diff != "" {
		t.Fatalf("unexpected list (-want +got):\n%s", diff)
	}
	if !registry.Has("htmlform") || registry.Has("pdf") {
		t.Fatalf("unexpected Has results")
	}
}
