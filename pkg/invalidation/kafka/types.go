package kafka

import "context"

// Evictor drops a cached object. storage.Cached satisfies it.
type Evictor interface {
	Evict(ctx context.Context, bucket, path string) error
}
