package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildBackupJSONSchema returns the JSON-Schema a backup document must
// satisfy before import. Unknown keys are allowed so newer 1.x exports load.
func BuildBackupJSONSchema() map[string]any {
	job := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":                  map[string]any{"type": "string"},
			"wipNumber":           map[string]any{"type": "string", "minLength": 1, "maxLength": 20},
			"vehicleRegistration": map[string]any{"type": "string", "maxLength": 12},
			"jobNumber":           map[string]any{"type": "string", "maxLength": 20},
			"awValue":             map[string]any{"type": "number", "exclusiveMinimum": 0, "maximum": 999},
			"notes":               map[string]any{"type": "string"},
			"dateCreated":         map[string]any{"type": "string", "minLength": 1},
			"timeInMinutes":       map[string]any{"type": "number"},
		},
		"required": []string{"wipNumber", "awValue", "dateCreated"},
	}
	settings := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"isAuthenticated": map[string]any{"type": "boolean"},
			"targetHours":     map[string]any{"type": "number", "minimum": 0},
			"absenceHours":    map[string]any{"type": "number", "minimum": 0},
			"theme":           map[string]any{"type": "string"},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"version":   map[string]any{"type": "string", "minLength": 1},
			"timestamp": map[string]any{"type": "string", "minLength": 1},
			"jobs":      map[string]any{"type": "array", "items": job},
			"settings":  settings,
			"metadata":  map[string]any{"type": "object"},
		},
		"required": []string{"version", "timestamp", "jobs", "settings"},
	}
}

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func backupSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		b, err := json.Marshal(BuildBackupJSONSchema())
		if err != nil {
			schemaErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("backup.json", bytes.NewReader(b)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("backup.json")
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks raw backup JSON against BuildBackupJSONSchema.
func ValidateDocument(data []byte) error {
	schema, err := backupSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
