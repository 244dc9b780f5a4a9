package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// requestSchemas maps a request name to its compiled JSON schema. Compiled
// once at startup; a broken schema file is a programming error.
var requestSchemas = mustCompileSchemas()

func mustCompileSchemas() map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		panic(fmt.Sprintf("read embedded schemas: %v", err))
	}

	schemas := make(map[string]*jsonschema.Schema, len(entries))
	for _, entry := range entries {
		data, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			panic(fmt.Sprintf("read schema %s: %v", entry.Name(), err))
		}
		if err := compiler.AddResource(entry.Name(), bytes.NewReader(data)); err != nil {
			panic(fmt.Sprintf("add schema %s: %v", entry.Name(), err))
		}
		name := strings.TrimSuffix(entry.Name(), ".json")
		schemas[name] = compiler.MustCompile(entry.Name())
	}
	return schemas
}

// validateBody checks a raw request body against the named schema. The
// returned error message is safe to show to the caller.
func validateBody(name string, raw []byte) error {
	schema, ok := requestSchemas[name]
	if !ok {
		return fmt.Errorf("unknown request schema %q", name)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid json body")
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			leaf := ve
			for len(leaf.Causes) > 0 {
				leaf = leaf.Causes[0]
			}
			return fmt.Errorf("invalid request body: %s %s", leaf.InstanceLocation, leaf.Message)
		}
		return fmt.Errorf("invalid request body")
	}
	return nil
}
