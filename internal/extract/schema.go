package extract

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/receiptwise/expense-tracker/constants"
)

// candidateListSchema is the contract between extractor and validator: a
// malformed candidate list is a programming error on the producer side, not
// bad input, and gets reported as such.
const candidateListSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["kind", "raw_text", "value", "confidence"],
    "properties": {
      "kind": {
        "type": "string",
        "enum": %s
      },
      "raw_text": { "type": "string" },
      "value": { "type": "string" },
      "confidence": { "type": "number", "minimum": 0, "maximum": 1 },
      "fragments": {
        "type": "array",
        "items": { "type": "integer", "minimum": 0 }
      }
    },
    "additionalProperties": false
  }
}`

var compiledCandidateSchema = func() *jsonschema.Schema {
	kinds, err := json.Marshal(constants.FieldKindStrings())
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString("candidates.json", fmt.Sprintf(candidateListSchema, kinds))
}()

// validateCandidates checks the candidate list against the contract schema.
func validateCandidates(cands []Candidate) error {
	raw, err := json.Marshal(cands)
	if err != nil {
		return fmt.Errorf("marshal candidates: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("unmarshal candidates: %w", err)
	}
	if doc == nil {
		return nil
	}
	if err := compiledCandidateSchema.Validate(doc); err != nil {
		return fmt.Errorf("candidate contract: %w", err)
	}
	return nil
}
