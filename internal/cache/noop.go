package cache

import (
	"context"
	"time"
)

// NoopStore stands in for the durable tier when Redis is unreachable. Reads
// always miss and writes are accepted silently, so the pipeline behaves
// correctly (just uncached) without the store.
type NoopStore struct{}

// NewNoop returns the no-op store.
func NewNoop() *NoopStore {
	return &NoopStore{}
}

func (*NoopStore) Get(context.Context, string, any) error {
	return ErrMiss
}

func (*NoopStore) Set(context.Context, string, any, time.Duration) error {
	return nil
}

func (*NoopStore) Delete(context.Context, string) error {
	return nil
}

func (*NoopStore) DeletePattern(context.Context, string) error {
	return nil
}
