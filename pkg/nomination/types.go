package nomination

// FieldType is the simplified enum for form-friendly field kinds.
type FieldType string

const (
	FieldTypeText          FieldType = "text"
	FieldTypeTextarea      FieldType = "textarea"
	FieldTypeEmail         FieldType = "email"
	FieldTypePhone         FieldType = "tel"
	FieldTypeSelect        FieldType = "select"
	FieldTypeCheckboxGroup FieldType = "checkboxgroup"
	FieldTypeRadio         FieldType = "radio"
	FieldTypeDate          FieldType = "date"
	FieldTypeFile          FieldType = "file"
)

const (
	RuleRequired     = "required"
	RuleEmail        = "email"
	RulePhone        = "phone"
	RuleMinLength    = "minLength"
	RuleMaxLength    = "maxLength"
	RuleMinWords     = "minWords"
	RulePattern      = "pattern"
	RuleOneOf        = "oneOf"
	RuleNonEmpty     = "nonEmpty"
	RuleRelationship = "relationship"
	RuleNarrative    = "narrative"
)

// Rule represents a single validation constraint applied to a field. Use the
// Rule* constants to reference canonical kinds. Length limits and word counts
// encode their threshold in Params["value"] while pattern rules preserve the
// original expression in Params["pattern"]. Membership rules (oneOf) read
// their allowed set from the field's Options.
type Rule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Option is a selectable choice for select, radio and checkbox-group fields.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Field models an individual input inside a form step. Struct fields are
// annotated so renderers can serialise them directly when needed.
type Field struct {
	Name        string    `json:"name" yaml:"name"`
	Type        FieldType `json:"type" yaml:"type"`
	Label       string    `json:"label,omitempty" yaml:"label,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Help        string    `json:"help,omitempty" yaml:"help,omitempty"`
	Required    bool      `json:"required" yaml:"required"`
	Default     any       `json:"default,omitempty" yaml:"default,omitempty"`
	Options     []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	Rules       []Rule    `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Step groups fields into a single page of the multi-step flow.
type Step struct {
	ID          string  `json:"id" yaml:"id"`
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

// Definition is the top-level representation the session controller and the
// renderers consume. Rules are resolved here, at definition time, instead of
// being discovered from rendered markup.
type Definition struct {
	ID              string            `json:"id" yaml:"id"`
	Title           string            `json:"title" yaml:"title"`
	Description     string            `json:"description,omitempty" yaml:"description,omitempty"`
	Endpoint        string            `json:"endpoint" yaml:"endpoint"`
	Method          string            `json:"method" yaml:"method"`
	ReferencePrefix string            `json:"referencePrefix,omitempty" yaml:"referencePrefix,omitempty"`
	Steps           []Step            `json:"steps" yaml:"steps"`
	Metadata        map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// StepCount reports the number of steps in the definition.
func (d Definition) StepCount() int {
	return len(d.Steps)
}

// StepAt returns the 1-based step, matching how the flow is numbered in the
// UI. It returns false when the index is out of range.
func (d Definition) StepAt(index int) (Step, bool) {
	if index < 1 || index > len(d.Steps) {
		return Step{}, false
	}
	return d.Steps[index-1], true
}

// FieldByName looks a field up across all steps. The second return value is
// the 1-based step index owning the field.
func (d Definition) FieldByName(name string) (Field, int, bool) {
	for i, step := range d.Steps {
		for _, field := range step.Fields {
			if field.Name == name {
				return field, i + 1, true
			}
		}
	}
	return Field{}, 0, false
}

// Fields returns every field across all steps in declaration order.
func (d Definition) Fields() []Field {
	var out []Field
	for _, step := range d.Steps {
		out = append(out, step.Fields...)
	}
	return out
}

// RequiredFields returns the names of required fields, optionally limited to
// a single 1-based step when step > 0.
func (d Definition) RequiredFields(step int) []string {
	var out []string
	for i, s := range d.Steps {
		if step > 0 && i+1 != step {
			continue
		}
		for _, field := range s.Fields {
			if field.Required {
				out = append(out, field.Name)
			}
		}
	}
	return out
}
