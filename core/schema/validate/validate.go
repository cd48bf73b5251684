package validate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/kaptinlin/jsonschema"

	coreerrors "github.com/forem/mediaurl/core/errors"
	"github.com/forem/mediaurl/core/schema"
)

var ErrSchemaViolation = errors.New("schema validation failed")

var (
	compiledMu sync.Mutex
	compiled   = map[string]*jsonschema.Schema{}
)

// Document validates data against the embedded schema name.
func Document(name string, data []byte) error {
	compiledSchema, err := embeddedSchema(name)
	if err != nil {
		return err
	}
	return validateJSON(compiledSchema, data)
}

// DocumentLines validates every non-blank JSONL line against the embedded
// schema name.
func DocumentLines(name string, data []byte) error {
	compiledSchema, err := embeddedSchema(name)
	if err != nil {
		return err
	}
	return validateJSONL(compiledSchema, data)
}

func ValidateJSONFile(schemaPath, jsonPath string) error {
	compiledSchema, err := loadSchema(schemaPath)
	if err != nil {
		return err
	}
	// #nosec G304 -- json path is explicit local user input.
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("read json: %w", err)
	}
	return validateJSON(compiledSchema, data)
}

func embeddedSchema(name string) (*jsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if cached, ok := compiled[name]; ok {
		return cached, nil
	}
	data, err := schema.Load(name)
	if err != nil {
		return nil, err
	}
	compiledSchema, err := compile(data)
	if err != nil {
		return nil, err
	}
	compiled[name] = compiledSchema
	return compiledSchema, nil
}

func loadSchema(schemaPath string) (*jsonschema.Schema, error) {
	// #nosec G304 -- schema path is explicit local user input.
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return compile(data)
}

func compile(data []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	compiledSchema, err := compiler.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiledSchema, nil
}

func validateJSON(compiledSchema *jsonschema.Schema, data []byte) error {
	result := compiledSchema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return coreerrors.Validation(ErrSchemaViolation, "schema_violation", "%v", result.Errors)
}

func validateJSONL(compiledSchema *jsonschema.Schema, data []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		if err := validateJSON(compiledSchema, b); err != nil {
			return fmt.Errorf("jsonl line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read jsonl: %w", err)
	}
	return nil
}
