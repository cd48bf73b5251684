package search

import (
	"encoding/json"

	coreerrors "github.com/forem/mediaurl/core/errors"
)

// Document is the JSON form of a search query accepted by the CLI.
type Document struct {
	Expression string              `json:"expression,omitempty"`
	MaxResults int                 `json:"max_results,omitempty"`
	NextCursor string              `json:"next_cursor,omitempty"`
	SortBy     []map[string]string `json:"sort_by,omitempty"`
	Aggregate  []string            `json:"aggregate,omitempty"`
	WithField  []string            `json:"with_field,omitempty"`
	Fields     []string            `json:"fields,omitempty"`
	TTL        int                 `json:"ttl,omitempty"`
}

// Parse decodes a search document into a builder.
func Parse(data []byte) (*Builder, error) {
	var document Document
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, coreerrors.Validation(ErrInvalidQuery, "invalid_search_query", "decode search document: %v", err)
	}
	return document.Builder()
}

func (d Document) Builder() (*Builder, error) {
	builder := New().Expression(d.Expression).MaxResults(d.MaxResults).NextCursor(d.NextCursor)
	for _, entry := range d.SortBy {
		if len(entry) != 1 {
			return nil, coreerrors.Validation(ErrInvalidQuery, "invalid_search_query", "sort_by entries need exactly one field, got %d", len(entry))
		}
		for field, direction := range entry {
			builder.SortBy(field, direction)
		}
	}
	for _, value := range d.Aggregate {
		builder.Aggregate(value)
	}
	for _, value := range d.WithField {
		builder.WithField(value)
	}
	builder.Fields(d.Fields...)
	if d.TTL > 0 {
		builder.TTL(d.TTL)
	}
	return builder, nil
}
