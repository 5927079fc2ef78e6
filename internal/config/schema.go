package config

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/settings.schema.json
var schemaFS embed.FS

// settingsSchemaName is the resource name the settings schema is compiled under.
const settingsSchemaName = "settings.schema.json"

// settingsSchema compiles the embedded schema on first use.
var settingsSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile("schema/" + settingsSchemaName)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(settingsSchemaName, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(settingsSchemaName)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ValidateSettingsDocument checks a decoded run settings document (the
// request shape with pageIds, processesToExecute and processSettings) against
// the settings schema. Only value types are checked: a stage may omit keys
// here because file defaults and run settings are merged before use.
//
// doc may come from either YAML or JSON decoding; it is normalized through
// JSON first so that YAML's integer types validate like JSON numbers.
func ValidateSettingsDocument(doc any) error {
	schema, err := settingsSchema()
	if err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}
