package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

var reflector = &jsonschema.Reflector{
	Anonymous:      true,
	DoNotReference: true,
	ExpandedStruct: true,
}

// SchemaFor reflects the JSON schema of T's fields into the map form carried
// by ToolSpec. Fields without omitempty are required.
func SchemaFor[T any]() (map[string]any, error) {
	var zero T
	data, err := json.Marshal(reflector.Reflect(&zero))
	if err != nil {
		return nil, fmt.Errorf("tools: schema for %T: %w", zero, err)
	}
	schema := map[string]any{}
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("tools: schema for %T: %w", zero, err)
	}
	delete(schema, "$schema")
	delete(schema, "$id")
	return schema, nil
}

// MustSchemaFor is SchemaFor for package-level schemas.
func MustSchemaFor[T any]() map[string]any {
	schema, err := SchemaFor[T]()
	if err != nil {
		panic(err)
	}
	return schema
}
