package nomination

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

const stepExtensionKey = "x-step"

// FromOpenAPI derives a Definition from the request body of a single OpenAPI
// operation. Schema constraints map onto rules (minLength, maxLength,
// pattern, enum membership) and the optional x-step extension groups
// properties into steps; properties without it share a single "details" step.
func FromOpenAPI(ctx context.Context, raw []byte, operationID string) (Definition, error) {
	if len(raw) == 0 {
		return Definition{}, errors.New("nomination: openapi document is empty")
	}
	if operationID == "" {
		return Definition{}, errors.New("nomination: operation id is required")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return Definition{}, fmt.Errorf("nomination: load openapi document: %w", err)
	}
	if spec.Paths == nil {
		return Definition{}, errors.New("nomination: openapi document has no paths")
	}

	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range map[string]*openapi3.Operation{
			"GET": item.Get, "POST": item.Post, "PUT": item.Put,
			"PATCH": item.Patch, "DELETE": item.Delete,
		} {
			if op == nil || op.OperationID != operationID {
				continue
			}
			return definitionFromOperation(operationID, method, path, op)
		}
	}

	return Definition{}, fmt.Errorf("nomination: operation %q not found", operationID)
}

func definitionFromOperation(id, method, path string, op *openapi3.Operation) (Definition, error) {
	schema := requestSchema(op)
	if schema == nil {
		return Definition{}, fmt.Errorf("nomination: operation %q has no request schema", id)
	}

	requiredSet := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		requiredSet[name] = struct{}{}
	}

	grouped := make(map[string][]Field)
	var order []string
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := schema.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		_, required := requiredSet[name]
		field := fieldFromSchema(name, ref.Value, required)

		stepID := "details"
		if v, ok := ref.Value.Extensions[stepExtensionKey].(string); ok && v != "" {
			stepID = v
		}
		if _, seen := grouped[stepID]; !seen {
			order = append(order, stepID)
		}
		grouped[stepID] = append(grouped[stepID], field)
	}

	def := Definition{
		ID:          id,
		Title:       op.Summary,
		Description: op.Description,
		Endpoint:    path,
		Method:      strings.ToUpper(method),
	}
	for _, stepID := range order {
		def.Steps = append(def.Steps, Step{
			ID:     stepID,
			Title:  labelFromName(stepID),
			Fields: grouped[stepID],
		})
	}

	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	return def, nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	for _, mt := range content {
		if mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func fieldFromSchema(name string, src *openapi3.Schema, required bool) Field {
	field := Field{
		Name:     name,
		Type:     fieldTypeFromSchema(src),
		Label:    labelFromName(name),
		Help:     src.Description,
		Required: required,
	}
	if src.Default != nil {
		field.Default = src.Default
	}
	if required {
		field.Rules = append(field.Rules, Rule{Kind: RuleRequired})
	}
	switch field.Type {
	case FieldTypeEmail:
		field.Rules = append(field.Rules, Rule{Kind: RuleEmail})
	case FieldTypePhone:
		field.Rules = append(field.Rules, Rule{Kind: RulePhone})
	}
	if src.MinLength != 0 {
		field.Rules = append(field.Rules, Rule{
			Kind:   RuleMinLength,
			Params: map[string]string{"value": strconv.FormatUint(src.MinLength, 10)},
		})
	}
	if src.MaxLength != nil {
		field.Rules = append(field.Rules, Rule{
			Kind:   RuleMaxLength,
			Params: map[string]string{"value": strconv.FormatUint(*src.MaxLength, 10)},
		})
	}
	if src.Pattern != "" {
		field.Rules = append(field.Rules, Rule{
			Kind:   RulePattern,
			Params: map[string]string{"pattern": src.Pattern},
		})
	}
	if len(src.Enum) > 0 {
		for _, value := range src.Enum {
			text := fmt.Sprint(value)
			field.Options = append(field.Options, Option{Value: text, Label: labelFromName(text)})
		}
		field.Rules = append(field.Rules, Rule{Kind: RuleOneOf})
		if field.Type == FieldTypeText {
			field.Type = FieldTypeSelect
		}
	}
	return field
}

func fieldTypeFromSchema(src *openapi3.Schema) FieldType {
	switch src.Format {
	case "email":
		return FieldTypeEmail
	case "tel", "phone":
		return FieldTypePhone
	case "date", "date-time":
		return FieldTypeDate
	case "textarea":
		return FieldTypeTextarea
	case "binary":
		return FieldTypeFile
	}
	if src.Type != nil && src.Type.Is("array") {
		return FieldTypeCheckboxGroup
	}
	return FieldTypeText
}

func labelFromName(name string) string {
	if name == "" {
		return ""
	}

	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case r >= 'A' && r <= 'Z':
			flush()
			current.WriteRune(r + ('a' - 'A'))
		default:
			current.WriteRune(r)
		}
	}
	flush()

	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
