package nomination

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

const sampleYAML = `
id: sample-form
title: Sample
endpoint: /api/submit
method: POST
steps:
  - id: one
    title: Step One
    fields:
      - name: fullName
        type: text
        required: true
        rules:
          - kind: required
          - kind: minLength
            params: { value: "2" }
`

const sampleJSON = `{
  "id": "sample-form",
  "endpoint": "/api/submit",
  "steps": [
    {
      "id": "one",
      "fields": [
        { "name": "fullName", "type": "text", "required": true,
          "rules": [{ "kind": "required" }] }
      ]
    }
  ]
}`

func TestParse_YAML(t *testing.T) {
	def, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if def.ID != "sample-form" {
		t.Fatalf("expected id, got %q", def.ID)
	}
	if def.StepCount() != 1 {
		t.Fatalf("expected one step, got %d", def.StepCount())
	}
	field, step, ok := def.FieldByName("fullName")
	if !ok || step != 1 {
		t.Fatalf("expected fullName on step 1, got step %d ok=%v", step, ok)
	}
	if len(field.Rules) != 2 {
		t.Fatalf("expected two rules, got %d", len(field.Rules))
	}
}

func TestParse_JSONSniffed(t *testing.T) {
	def, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if def.ID != "sample-form" {
		t.Fatalf("expected id, got %q", def.ID)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"missing id", "steps: [{id: one, fields: []}]"},
		{"no steps", "id: sample"},
		{"missing step id", "id: sample\nsteps: [{fields: []}]"},
		{"duplicate step id", `
id: sample
steps:
  - id: one
    fields: []
  - id: one
    fields: []
`},
		{"duplicate field name", `
id: sample
steps:
  - id: one
    fields: [{name: a, type: text}]
  - id: two
    fields: [{name: a, type: text}]
`},
		{"unknown rule kind", `
id: sample
steps:
  - id: one
    fields:
      - name: a
        type: text
        rules: [{kind: telepathy}]
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Fatalf("expected parse error")
			}
		})
	}
}

func TestLoader_FromFS(t *testing.T) {
	loader := NewLoader(LoaderOptions{
		FileSystem: fstest.MapFS{
			"forms/sample.yaml": &fstest.MapFile{Data: []byte(sampleYAML)},
		},
	})

	def, err := loader.Load(context.Background(), SourceFromFS("forms/sample.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.ID != "sample-form" {
		t.Fatalf("expected id, got %q", def.ID)
	}

	if _, err := loader.Load(context.Background(), SourceFromFS("forms/missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoader_FromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.yaml") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(sampleYAML))
	}))
	defer server.Close()

	loader := NewLoader(LoaderOptions{HTTPClient: server.Client()})
	def, err := loader.Load(context.Background(), SourceFromURL(server.URL+"/sample.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if def.ID != "sample-form" {
		t.Fatalf("expected id, got %q", def.ID)
	}

	if _, err := loader.Load(context.Background(), SourceFromURL(server.URL+"/missing.yaml")); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestLoader_URLWithoutClient(t *testing.T) {
	loader := NewLoader(LoaderOptions{})
	if _, err := loader.Load(context.Background(), SourceFromURL("http://example.com/def.yaml")); err == nil {
		t.Fatalf("expected error without http client")
	}
}

func TestDefault_IsComplete(t *testing.T) {
	def := Default()
	if def.ID != "rare-award-nomination" {
		t.Fatalf("expected embedded id, got %q", def.ID)
	}
	if def.StepCount() != 4 {
		t.Fatalf("expected four steps, got %d", def.StepCount())
	}
	if def.ReferencePrefix != "RARE" {
		t.Fatalf("expected reference prefix, got %q", def.ReferencePrefix)
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("embedded definition invalid: %v", err)
	}

	required := def.RequiredFields(0)
	if len(required) == 0 {
		t.Fatalf("expected required fields")
	}
	// Spot check the fields the flow hinges on.
	for _, name := range []string{"nominatorName", "relationship", "narrative", "signature"} {
		if _, _, ok := def.FieldByName(name); !ok {
			t.Fatalf("expected field %q in embedded definition", name)
		}
	}
}

func TestRequiredFields_ByStep(t *testing.T) {
	def := Default()
	all := def.RequiredFields(0)
	step1 := def.RequiredFields(1)
	if len(step1) == 0 || len(step1) >= len(all) {
		t.Fatalf("expected step filter to narrow the list: %d of %d", len(step1), len(all))
	}
	for _, name := range step1 {
		if _, step, _ := def.FieldByName(name); step != 1 {
			t.Fatalf("expected %q on step 1, got %d", name, step)
		}
	}
}

func TestStepAt_Bounds(t *testing.T) {
	def := Default()
	if _, ok := def.StepAt(0); ok {
		t.Fatalf("expected step 0 to be out of range")
	}
	if _, ok := def.StepAt(def.StepCount() + 1); ok {
		t.Fatalf("expected past-the-end step to be out of range")
	}
	step, ok := def.StepAt(1)
	if !ok || step.ID != "nominator" {
		t.Fatalf("expected first step nominator, got %q ok=%v", step.ID, ok)
	}
}
