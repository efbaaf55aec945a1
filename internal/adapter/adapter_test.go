package adapter

import (
	"testing"

	"github.com/MKhiriev/go-sync-engine/models"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *models.SchemaRegistry {
	t.Helper()
	r, err := models.NewSchemaRegistry(models.ModelSchema{
		Name:   "Post",
		Fields: []string{"title", "status"},
	})
	require.NoError(t, err)
	return r
}

func postSchema(t *testing.T) models.ModelSchema {
	t.Helper()
	s, err := testRegistry(t).Get("Post")
	require.NoError(t, err)
	return s
}
