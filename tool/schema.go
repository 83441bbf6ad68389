package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects an argument struct into a JSON schema object.
//
// Supported tags:
//   - json:"name" - Parameter name
//   - jsonschema:"required" - Mark as required
//   - jsonschema:"description=..." - Parameter description
//   - jsonschema:"enum=val1,enum=val2" - Allowed values
//
// Example:
//
//	type Args struct {
//	    Command string `json:"command" jsonschema:"required,description=Command line to run"`
//	}
func SchemaFor[T any]() (map[string]any, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}

	data, err := json.Marshal(reflector.Reflect(new(T)))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(schemaMap, "$schema")
	delete(schemaMap, "$id")

	if schemaMap["type"] != "object" {
		return schemaMap, nil
	}

	result := map[string]any{
		"type":       "object",
		"properties": schemaMap["properties"],
	}
	if required, ok := schemaMap["required"]; ok {
		result["required"] = required
	}
	return result, nil
}

// MustSchemaFor is SchemaFor for argument types known to be valid.
func MustSchemaFor[T any]() map[string]any {
	schema, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return schema
}
