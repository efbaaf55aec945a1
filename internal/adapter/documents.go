package adapter

import (
	"fmt"
	"strings"

	"github.com/MKhiriev/go-sync-engine/models"
)

// Mutation operations, in the order subscriptions are opened.
const (
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

var mutationOps = []string{opCreate, opUpdate, opDelete}

var metadataSelection = []string{"_version", "_deleted", "_lastChangedAt"}

// selectionSet renders the fields selected for every returned record at the
// given indent depth.
func selectionSet(schema models.ModelSchema, depth int) string {
	indent := strings.Repeat("  ", depth)

	lines := make([]string, 0, len(schema.Fields)+len(metadataSelection)+1)
	lines = append(lines, indent+"id")
	for _, f := range schema.Fields {
		if f == "id" {
			continue
		}
		lines = append(lines, indent+f)
	}
	for _, f := range metadataSelection {
		lines = append(lines, indent+f)
	}

	return strings.Join(lines, "\n")
}

// mutationName returns e.g. "createPost".
func mutationName(op string, schema models.ModelSchema) string {
	return op + schema.Name
}

// mutationDocument renders the create/update/delete mutation for schema.
func mutationDocument(op string, schema models.ModelSchema) string {
	opTitle := strings.ToUpper(op[:1]) + op[1:]
	field := mutationName(op, schema)

	return fmt.Sprintf(
		"mutation %s%s($input: %s%sInput!) {\n  %s(input: $input) {\n%s\n  }\n}",
		opTitle, schema.Name,
		opTitle, schema.Name,
		field,
		selectionSet(schema, 2),
	)
}

// syncQueryName returns e.g. "syncPosts".
func syncQueryName(schema models.ModelSchema) string {
	return "sync" + schema.Plural()
}

// syncDocument renders the paginated delta sync query for schema.
func syncDocument(schema models.ModelSchema) string {
	field := syncQueryName(schema)
	opName := strings.ToUpper(field[:1]) + field[1:]

	return fmt.Sprintf(
		"query %s($limit: Int, $nextToken: String, $lastSync: AWSTimestamp, $filter: Model%sFilterInput) {\n"+
			"  %s(limit: $limit, nextToken: $nextToken, lastSync: $lastSync, filter: $filter) {\n"+
			"    items {\n%s\n    }\n"+
			"    nextToken\n"+
			"    startedAt\n"+
			"  }\n}",
		opName, schema.Name,
		field,
		selectionSet(schema, 3),
	)
}

// subscriptionField returns e.g. "onCreatePost".
func subscriptionField(op string, schema models.ModelSchema) string {
	return "on" + strings.ToUpper(op[:1]) + op[1:] + schema.Name
}

// subscriptionDocument renders the subscription for one mutation op.
func subscriptionDocument(op string, schema models.ModelSchema) string {
	field := subscriptionField(op, schema)
	opName := strings.ToUpper(field[:1]) + field[1:]

	return fmt.Sprintf(
		"subscription %s {\n  %s {\n%s\n  }\n}",
		opName, field, selectionSet(schema, 2),
	)
}
