// Package plan validates proposed execution plans: structural shape,
// capability coverage, and aggregate risk. The validator never inspects
// target content or executes selectors; it is a pure check over the
// plan's declared metadata.
package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/farsight-labs/warden/pkg/contracts"
)

// planSchema is the wire-shape contract for plans arriving as JSON.
// Shape violations are rejected here before any semantic check runs.
const planSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["plan_id", "execution_id", "steps"],
  "properties": {
    "plan_id": {"type": "string", "minLength": 1},
    "execution_id": {"type": "string", "minLength": 1},
    "steps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["step_id", "index", "action", "selector", "timeout_ms", "risk"],
        "properties": {
          "step_id": {"type": "string", "minLength": 1},
          "index": {"type": "integer", "minimum": 0},
          "action": {"type": "string", "minLength": 1},
          "selector": {"type": "string"},
          "value": {"type": "string"},
          "timeout_ms": {"type": "integer", "minimum": 0},
          "risk": {"enum": ["LOW", "MEDIUM", "HIGH", "CRITICAL"]}
        }
      }
    }
  }
}`

var compiledPlanSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("plan.schema.json", strings.NewReader(planSchema)); err != nil {
		panic(fmt.Sprintf("plan: schema resource: %v", err))
	}
	return compiler.MustCompile("plan.schema.json")
}

// Parse validates raw plan JSON against the wire schema and decodes it.
// A shape violation is a StructuralError: fatal to this evaluation,
// never repaired.
func Parse(raw []byte) (*contracts.ExecutionPlan, error) {
	var generic any
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	if err := decoder.Decode(&generic); err != nil {
		return nil, &contracts.StructuralError{Subject: "plan", Detail: fmt.Sprintf("not valid JSON: %v", err)}
	}
	if err := compiledPlanSchema.Validate(generic); err != nil {
		return nil, &contracts.StructuralError{Subject: "plan", Detail: fmt.Sprintf("schema violation: %v", err)}
	}
	var p contracts.ExecutionPlan
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &contracts.StructuralError{Subject: "plan", Detail: fmt.Sprintf("decode failed: %v", err)}
	}
	return &p, nil
}
