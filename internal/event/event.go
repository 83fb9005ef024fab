// Package event connects the search service to Kafka: reindex requests come
// in, index promotions go out.
package event

import (
	pkgkafka "github.com/utafrali/catalog-search/pkg/kafka"
)

// Event types.
const (
	EventReindexRequested = "search.reindex.requested"
	EventIndexPromoted    = "search.index.promoted"
)

// Topics.
var (
	TopicReindexRequested = pkgkafka.Topic("search", "reindex-requested")
	TopicIndexPromoted    = pkgkafka.Topic("search", "index-promoted")
)

// Source is the value written to the envelope's source field.
const Source = "search-service"

// ReindexRequested is the payload of a reindex request.
type ReindexRequested struct {
	Reason      string `json:"reason,omitempty"`
	RequestedBy string `json:"requested_by,omitempty"`
}
