package httpapi

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed valuation_request.schema.json
var valuationRequestSchemaJSON string

var valuationRequestSchema = jsonschema.MustCompileString(
	"valuation_request.schema.json", valuationRequestSchemaJSON)

// validateRequestBlob checks the raw body against the request contract
// before any decoding into engine types happens, so handlers never see a
// structurally invalid request.
func validateRequestBlob(blob []byte) error {
	var v any
	if err := json.Unmarshal(blob, &v); err != nil {
		return fmt.Errorf("body is not valid JSON: %w", err)
	}
	if err := valuationRequestSchema.Validate(v); err != nil {
		return fmt.Errorf("request failed schema validation: %w", err)
	}
	return nil
}
