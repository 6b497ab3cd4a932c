package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dfandrich/testclutch-curl-web/pkg/logger"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

var schemaLog = logger.New("config:schema")

//go:embed schemas/config_schema.json
var configSchema string

const configSchemaURL = "https://github.com/dfandrich/testclutch-curl-web/config-schema.json"

var (
	configSchemaOnce     sync.Once
	compiledConfigSchema *jsonschema.Schema
	configSchemaError    error
)

// getCompiledConfigSchema returns the compiled config schema, compiling it once and caching
func getCompiledConfigSchema() (*jsonschema.Schema, error) {
	configSchemaOnce.Do(func() {
		compiledConfigSchema, configSchemaError = compileSchema(configSchema, configSchemaURL)
	})
	return compiledConfigSchema, configSchemaError
}

// compileSchema compiles a JSON schema from a JSON string
func compileSchema(schemaJSON, schemaURL string) (*jsonschema.Schema, error) {
	schemaLog.Printf("Compiling JSON schema: %s", schemaURL)

	compiler := jsonschema.NewCompiler()

	var schemaDoc any
	if err := json.Unmarshal([]byte(schemaJSON), &schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}
	if err := compiler.AddResource(schemaURL, schemaDoc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// validateDocument checks a decoded YAML document against the config
// schema. A nil document (empty file) is an empty object.
func validateDocument(doc map[string]any) error {
	schema, err := getCompiledConfigSchema()
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}

	// Round-trip through JSON so YAML integer and map types become the
	// ones the validator expects.
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("schema validation error: failed to marshal config: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(docJSON, &normalized); err != nil {
		return fmt.Errorf("schema validation error: failed to unmarshal config: %w", err)
	}
	if err := schema.Validate(normalized); err != nil {
		return errors.New(cleanSchemaError(err))
	}
	return nil
}

// atPathPattern matches "- at '/path': " or "at '/path': " prefixes in error messages
var atPathPattern = regexp.MustCompile(`^-?\s*at '([^']*)': (.+)$`)

// cleanSchemaError rewrites a jsonschema validation error as one
// "key: problem" item per violation, keys in dotted form.
func cleanSchemaError(err error) string {
	var items []string
	for _, line := range strings.Split(err.Error(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "jsonschema validation failed") {
			continue
		}
		if m := atPathPattern.FindStringSubmatch(line); m != nil {
			key := strings.ReplaceAll(strings.TrimPrefix(m[1], "/"), "/", ".")
			if key == "" {
				line = m[2]
			} else {
				line = key + ": " + m[2]
			}
		}
		items = append(items, line)
	}
	if len(items) == 0 {
		return "schema validation failed"
	}
	return strings.Join(items, "; ")
}
