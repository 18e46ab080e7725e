package adapter

import "context"

// Service is the generic CRM adapter contract. Implementations include the
// websocket client in adapterws and in-memory fakes in tests.
type Service interface {
	CreateEntity(ctx context.Context, req CreateRequest) (CreateResponse, error)
	UpdateEntity(ctx context.Context, req UpdateRequest) (UpdateResponse, error)
	SearchEntities(ctx context.Context, req SearchRequest) (SearchResponse, error)
}
