package task

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/taskflow/internal/utils"
)

//go:embed tasks.schema.json
var schemaSource string

const schemaURL = "https://taskflow.local/tasks.schema.json"

// Schema references accepted by Validate.
const (
	SchemaTasks  = schemaURL
	SchemaBundle = schemaURL + "#/$defs/bundle"
)

var (
	schemaOnce sync.Once
	schemas    map[string]*jsonschema.Schema
	schemaErr  error
)

func compileSchemas() {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
		schemaErr = fmt.Errorf("add schema resource: %w", err)
		return
	}
	schemas = make(map[string]*jsonschema.Schema)
	for _, ref := range []string{SchemaTasks, SchemaBundle} {
		s, err := compiler.Compile(ref)
		if err != nil {
			schemaErr = fmt.Errorf("compile schema %s: %w", ref, err)
			return
		}
		schemas[ref] = s
	}
}

// Validate checks raw JSON against one of the embedded schemas. Failures are
// reported as a *ValidationError naming the offending location.
func Validate(data []byte, ref string) error {
	schemaOnce.Do(compileSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	schema, ok := schemas[ref]
	if !ok {
		return fmt.Errorf("unknown schema %q", ref)
	}

	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return &ValidationError{Err: fmt.Errorf("parse json: %w", err)}
	}
	if err := schema.Validate(doc); err != nil {
		return schemaError(err)
	}
	return nil
}

func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return &ValidationError{Err: err}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &ValidationError{
		Field: utils.JSONPointerToPath(leaf.InstanceLocation),
		Err:   fmt.Errorf("%s", leaf.Message),
	}
}

// Encode serializes the collection with 2-space indentation and a trailing
// newline.
func Encode(tasks []Task) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates a persisted collection.
func Decode(data []byte) ([]Task, error) {
	if err := Validate(data, SchemaTasks); err != nil {
		return nil, err
	}
	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, &ValidationError{Err: fmt.Errorf("decode tasks: %w", err)}
	}
	return Normalize(tasks)
}

// Normalize maps legacy enum values to their current form and fills
// timestamps so that updatedAt is never before createdAt.
func Normalize(tasks []Task) ([]Task, error) {
	for i := range tasks {
		t := &tasks[i]
		p, err := ParsePriority(string(t.Priority))
		if err != nil {
			return nil, &ValidationError{Field: fmt.Sprintf("[%d].priority", i), Err: err}
		}
		t.Priority = p
		t.Category = NormalizeCategory(string(t.Category))
		t.Title = strings.TrimSpace(t.Title)
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		if t.UpdatedAt.Before(t.CreatedAt) {
			t.UpdatedAt = t.CreatedAt
		}
	}
	return tasks, nil
}
