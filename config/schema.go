package config

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// settingsSchema is the JSON Schema every merged settings document is
// validated against before decoding. Duration fields accept either a
// string ("2s") or nanoseconds, matching the two encodings layered
// files produce.
const settingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "LedgerStream client settings",
  "type": "object",
  "properties": {
    "version": {"type": "string"},
    "endpoints": {
      "type": "object",
      "properties": {
        "candidates": {
          "type": "array",
          "items": {"type": "string", "minLength": 1},
          "minItems": 1
        },
        "tls": {
          "type": "object",
          "properties": {
            "enabled": {"type": "boolean"},
            "cert_file": {"type": "string"},
            "key_file": {"type": "string"},
            "ca_file": {"type": "string"},
            "insecure_skip_verify": {"type": "boolean"}
          },
          "additionalProperties": false
        }
      },
      "required": ["candidates"],
      "additionalProperties": false
    },
    "connection": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "username": {"type": "string"},
        "password": {"type": "string"},
        "token": {"type": "string"},
        "max_reconnects": {"type": "integer"},
        "reconnect_wait": {"type": ["string", "integer"]},
        "request_timeout": {"type": ["string", "integer"]}
      },
      "additionalProperties": false
    },
    "read": {
      "type": "object",
      "properties": {
        "page_size": {"type": "integer", "minimum": 1},
        "resolve_links": {"type": "boolean"}
      },
      "additionalProperties": false
    },
    "discovery": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "interval": {"type": ["string", "integer"]},
        "max_attempts": {"type": "integer", "minimum": 1}
      },
      "additionalProperties": false
    },
    "keepalive": {
      "type": "object",
      "properties": {
        "interval": {"type": ["string", "integer"]},
        "timeout": {"type": ["string", "integer"]}
      },
      "additionalProperties": false
    },
    "logging": {
      "type": "object",
      "properties": {
        "level": {"type": "string", "enum": ["debug", "info", "warn", "error"]}
      },
      "additionalProperties": false
    }
  },
  "additionalProperties": false
}`

// ValidationError describes one schema violation in a settings
// document
type ValidationError struct {
	Field   string
	Message string
}

// String returns the violation as "field: message"
func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateDocument validates a raw JSON settings document against the
// settings schema. A nil result means the document is valid.
func ValidateDocument(document []byte) []ValidationError {
	schemaLoader := gojsonschema.NewStringLoader(settingsSchema)
	documentLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return []ValidationError{{Field: "document", Message: err.Error()}}
	}

	if result.Valid() {
		return nil
	}

	validationErrors := make([]ValidationError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		validationErrors = append(validationErrors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return validationErrors
}
