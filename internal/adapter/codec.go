package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/models"
)

// mutationInput builds the $input variable. Create and update carry the
// payload fields; delete only the id. Update and delete add the expected
// version.
func mutationInput(op string, item models.Model, expectedVersion int64) (map[string]any, error) {
	input := make(map[string]any)

	if op != opDelete {
		fields, err := item.Fields()
		if err != nil {
			return nil, err
		}
		for k, v := range fields {
			input[k] = v
		}
	}

	input["id"] = item.ID
	if op != opCreate {
		input["_version"] = expectedVersion
	}

	return input, nil
}

// decodeItem splits a flat GraphQL record into a model and its metadata.
// Metadata fields and __typename are removed from the payload; remaining keys
// are re-encoded in sorted order.
func decodeItem(modelName string, raw json.RawMessage) (models.ModelWithMetadata, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.ModelWithMetadata{}, fmt.Errorf("decode %s item: %w", modelName, err)
	}
	if fields == nil {
		return models.ModelWithMetadata{}, fmt.Errorf("decode %s item: null record", modelName)
	}

	var (
		id  string
		out models.ModelWithMetadata
	)
	if err := decodeField(fields, "id", &id); err != nil {
		return out, err
	}
	if id == "" {
		return out, fmt.Errorf("decode %s item: missing id", modelName)
	}
	if err := decodeField(fields, "_version", &out.Metadata.Version); err != nil {
		return out, err
	}
	if err := decodeField(fields, "_deleted", &out.Metadata.Deleted); err != nil {
		return out, err
	}
	if err := decodeField(fields, "_lastChangedAt", &out.Metadata.LastChangedAt); err != nil {
		return out, err
	}
	delete(fields, "__typename")

	// map keys are marshalled sorted
	payload, err := json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("encode %s payload: %w", modelName, err)
	}

	out.Model = models.Model{Name: modelName, ID: id, Payload: payload}
	out.Metadata.ModelName = modelName
	out.Metadata.ID = id
	return out, nil
}

// decodeField unmarshals fields[key] into dst and removes the key. A missing
// or null value leaves dst untouched.
func decodeField(fields map[string]json.RawMessage, key string, dst any) error {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	delete(fields, key)
	if string(v) == "null" {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("decode field %q: %w", key, err)
	}
	return nil
}
