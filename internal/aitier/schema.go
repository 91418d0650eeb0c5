package aitier

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var nullableString = map[string]any{"type": []any{"string", "null"}}
var nullableNumber = map[string]any{"type": []any{"number", "null"}}

// extractionSchema describes the JSON object the model must return
var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"invoice_number": nullableString,
		"po_number":      nullableString,
		"vendor_name":    nullableString,
		"vendor_email":   nullableString,
		"vendor_phone":   nullableString,
		"vendor_address": nullableString,
		"invoice_date":   nullableString,
		"due_date":       nullableString,
		"subtotal":       nullableNumber,
		"tax_amount":     nullableNumber,
		"total_amount":   nullableNumber,
		"confidence": map[string]any{
			"type":    []any{"number", "null"},
			"minimum": 0,
			"maximum": 1,
		},
		"line_items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"line_number": map[string]any{"type": []any{"integer", "null"}},
					"description": nullableString,
					"quantity":    nullableNumber,
					"unit_price":  nullableNumber,
					"line_total":  nullableNumber,
				},
			},
		},
	},
	"required": []any{"invoice_number", "vendor_name", "total_amount", "line_items"},
}

// compileSchema compiles a schema map into a validator
func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("extraction.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("extraction.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateJSON checks raw model output against the compiled schema
func validateJSON(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// schemaText renders the schema for inclusion in the prompt
func schemaText() string {
	b, _ := json.MarshalIndent(extractionSchema, "", "  ")
	return string(b)
}
