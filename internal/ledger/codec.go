package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentVersion is written into every persisted envelope. Readers reject
// versions they do not know instead of guessing at the layout.
const documentVersion = 1

const (
	kindUsers      = "users"
	kindPassports  = "passports"
	kindOperations = "operations"
	kindReceipts   = "receipts"
	kindSettings   = "settings"
	kindSession    = "session"
	kindMarker     = "initialized"
)

var errMalformed = errors.New("malformed document")

type envelope struct {
	Version int             `json:"version"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

const envelopeSchema = `{
  "type": "object",
  "required": ["version", "kind", "data"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "kind": {"type": "string"},
    "data": %s
  }
}`

var dataSchemas = map[string]string{
	kindUsers: `{"type": "array", "items": {
		"type": "object",
		"required": ["id", "email", "phone", "balance", "role", "status"],
		"properties": {
			"id": {"type": "string", "minLength": 1},
			"email": {"type": "string"},
			"phone": {"type": "string"},
			"balance": {"type": "integer", "minimum": 0},
			"role": {"enum": ["admin", "user"]},
			"status": {"enum": ["active", "blocked"]},
			"cards": {"type": ["array", "null"]}
		}}}`,
	kindPassports: `{"type": "array", "items": {
		"type": "object",
		"required": ["number", "verified"],
		"properties": {"number": {"type": "string"}, "verified": {"type": "boolean"}}}}`,
	kindOperations: `{"type": "array", "items": {
		"type": "object",
		"required": ["id", "type", "amount", "at"],
		"properties": {"id": {"type": "string"}, "type": {"type": "string"}, "amount": {"type": "integer"}}}}`,
	kindReceipts: `{"type": "array", "items": {
		"type": "object",
		"required": ["id", "operationId", "number", "amount", "at"],
		"properties": {"amount": {"type": "integer", "minimum": 0}}}}`,
	kindSettings: `{"type": "object",
		"properties": {
			"transferLimit": {"type": "integer", "minimum": 0},
			"welcomeBonus": {"type": "integer", "minimum": 0},
			"cardIssueFee": {"type": "integer", "minimum": 0},
			"maintenance": {"type": "boolean"}
		}}`,
	kindSession: `{"type": "object", "required": ["userId", "token"]}`,
	kindMarker:  `{"type": "string"}`,
}

var schemas = compileSchemas()

func compileSchemas() map[string]*gojsonschema.Schema {
	out := make(map[string]*gojsonschema.Schema, len(dataSchemas))
	for kind, data := range dataSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(fmt.Sprintf(envelopeSchema, data)))
		if err != nil {
			panic(fmt.Sprintf("compile %s schema: %v", kind, err))
		}
		out[kind] = schema
	}
	return out
}

func encodeDocument(kind string, value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.Marshal(envelope{Version: documentVersion, Kind: kind, Data: data})
}

// decodeDocument validates raw against the schema for kind and decodes its
// payload into out. Any problem is reported as errMalformed.
func decodeDocument(kind string, raw []byte, out any) error {
	schema, ok := schemas[kind]
	if !ok {
		return fmt.Errorf("%w: unknown kind %s", errMalformed, kind)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fmt.Errorf("%w: %s", errMalformed, strings.Join(details, "; "))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if env.Kind != kind {
		return fmt.Errorf("%w: expected kind %s, got %s", errMalformed, kind, env.Kind)
	}
	if env.Version != documentVersion {
		return fmt.Errorf("%w: unsupported version %d", errMalformed, env.Version)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}
