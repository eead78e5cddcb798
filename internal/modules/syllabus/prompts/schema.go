package prompts

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/validation"
)

const SchemaName = "course_structure"

var (
	schemaOnce sync.Once
	schemaMap  map[string]any
)

// Schema returns the JSON Schema of the course reply, for providers that
// support structured output. Callers must not mutate the result.
func Schema() map[string]any {
	schemaOnce.Do(func() {
		r := jsonschema.Reflector{
			AllowAdditionalProperties: false,
			DoNotReference:            true,
		}
		s := r.Reflect(&validation.Reply{})
		raw, err := json.Marshal(s)
		if err != nil {
			panic(err)
		}
		if err := json.Unmarshal(raw, &schemaMap); err != nil {
			panic(err)
		}
		delete(schemaMap, "$schema")
		delete(schemaMap, "$id")
	})
	return schemaMap
}
