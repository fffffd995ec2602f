package domain

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaID identifies the published JSON Schema of the dataset format.
const SchemaID = "https://placesdir.local/schema/dataset.json"

// DatasetSchema returns the JSON Schema describing the serialized dataset.
// No property is required because imports tolerate missing fields.
func DatasetSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties:  true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(&Dataset{})
	s.ID = jsonschema.ID(SchemaID)
	s.Title = "Places directory dataset"
	return s
}

// DatasetSchemaJSON renders DatasetSchema as indented JSON.
func DatasetSchemaJSON() ([]byte, error) {
	return json.MarshalIndent(DatasetSchema(), "", "  ")
}
