package predicate

import (
	"github.com/MKhiriev/go-sync-engine/models"
)

type fieldEquals struct {
	field string
	value any
}

// FieldEquals matches models whose field equals value. Numbers compare as
// float64, the form JSON decoding produces.
func FieldEquals(field string, value any) models.Predicate {
	return fieldEquals{field: field, value: normalize(value)}
}

func (p fieldEquals) Match(m models.Model) (bool, error) {
	if _, err := m.Fields(); err != nil {
		return false, err
	}

	v, ok := m.Field(p.field)
	if !ok {
		return p.value == nil, nil
	}
	switch v.(type) {
	case map[string]any, []any:
		return false, nil
	}
	return normalize(v) == p.value, nil
}

// All matches models accepted by every predicate.
func All(preds ...models.Predicate) models.Predicate {
	return all(preds)
}

type all []models.Predicate

func (a all) Match(m models.Model) (bool, error) {
	for _, p := range a {
		if p == nil {
			continue
		}
		ok, err := p.Match(m)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case uint:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return v
}
