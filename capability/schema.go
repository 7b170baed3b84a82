package capability

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// Param schemas for the built-in local methods. Keyed by "skill.method".
var builtinParamSchemas = map[string]string{
	"filesystem.write_file": `{
		"type": "object",
		"properties": {
			"path":    {"type": "string", "minLength": 1},
			"content": {"type": "string"}
		},
		"required": ["path", "content"],
		"additionalProperties": false
	}`,
	"filesystem.read_file": `{
		"type": "object",
		"properties": {
			"path":   {"type": "string", "minLength": 1},
			"offset": {"type": "integer", "minimum": 1},
			"limit":  {"type": "integer", "minimum": 1}
		},
		"required": ["path"],
		"additionalProperties": false
	}`,
	"filesystem.search_files": `{
		"type": "object",
		"properties": {
			"query": {"type": "string", "minLength": 1},
			"path":  {"type": "string"}
		},
		"required": ["query"],
		"additionalProperties": false
	}`,
	"filesystem.delete_file": `{
		"type": "object",
		"properties": {
			"path": {"type": "string", "minLength": 1}
		},
		"required": ["path"],
		"additionalProperties": false
	}`,
	"filesystem.list_files": `{
		"type": "object",
		"properties": {
			"path": {"type": "string"}
		},
		"additionalProperties": false
	}`,
	"shell.run_command": `{
		"type": "object",
		"properties": {
			"command":    {"type": "string", "minLength": 1},
			"timeout_ms": {"type": "integer", "minimum": 1}
		},
		"required": ["command"],
		"additionalProperties": false
	}`,
	"network.fetch_url": `{
		"type": "object",
		"properties": {
			"url": {"type": "string", "minLength": 1}
		},
		"required": ["url"],
		"additionalProperties": false
	}`,
}

// ParamSchema returns the built-in param schema for a method, or nil if the
// method has none.
func ParamSchema(skill, method string) []byte {
	doc, ok := builtinParamSchemas[methodKey(skill, method)]
	if !ok {
		return nil
	}
	return []byte(doc)
}

// requestSchema validates the envelope of an externally submitted request
// before it reaches an Invoker.
const requestSchema = `{
	"type": "object",
	"properties": {
		"scope":  {"type": "string"},
		"skill":  {"type": "string", "minLength": 1},
		"method": {"type": "string", "minLength": 1},
		"params": {"type": "object"}
	},
	"required": ["skill", "method"],
	"additionalProperties": false
}`

var (
	compiledRequestSchema *gojsonschema.Schema
	requestSchemaOnce     sync.Once
	requestSchemaErr      error
)

func getRequestSchema() (*gojsonschema.Schema, error) {
	requestSchemaOnce.Do(func() {
		loader := gojsonschema.NewBytesLoader([]byte(requestSchema))
		compiledRequestSchema, requestSchemaErr = gojsonschema.NewSchema(loader)
	})
	return compiledRequestSchema, requestSchemaErr
}

// ValidateRequestJSON checks raw JSON against the request envelope schema.
// It returns a list of human-readable violations; an empty list means the
// document is a well-formed request.
func ValidateRequestJSON(data []byte) ([]string, error) {
	schema, err := getRequestSchema()
	if err != nil {
		return nil, fmt.Errorf("request schema unavailable: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return issues, nil
}
