package driven

import "context"

// EmbeddingService turns text into fixed-length vectors. One instance embeds
// both the corpus and the queries run against it; mixing models makes the
// scores meaningless.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order. Adapters split
	// large inputs into provider-sized requests.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is the vector length. Zero means the adapter learns it from
	// the first response.
	Dimensions() int

	ModelName() string

	// Ping makes the cheapest request that proves the model is usable.
	Ping(ctx context.Context) error

	Close() error
}
