package storage

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// Instrument wraps a store with debug logging of every operation
func Instrument(logger *zap.Logger, store Store) Store {
	return &instrumentedStore{
		store: store,
		l:     logger.With(zap.String("store", store.String())),
	}
}

type instrumentedStore struct {
	store Store
	l     *zap.Logger
}

func (i *instrumentedStore) String() string {
	return i.store.String()
}

func (i *instrumentedStore) Has(ctx context.Context, key string) (bool, error) {
	i.l.Debug("storage has", zap.String("key", key))
	return i.store.Has(ctx, key)
}

func (i *instrumentedStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	i.l.Debug("storage get", zap.String("key", key))
	return i.store.Get(ctx, key)
}

func (i *instrumentedStore) Put(ctx context.Context, key string, source io.Reader) error {
	i.l.Debug("storage put", zap.String("key", key))
	return i.store.Put(ctx, key, source)
}

func (i *instrumentedStore) Delete(ctx context.Context, key string) error {
	i.l.Debug("storage delete", zap.String("key", key))
	return i.store.Delete(ctx, key)
}

func (i *instrumentedStore) Keys(ctx context.Context) ([]string, error) {
	i.l.Debug("storage keys")
	return i.store.Keys(ctx)
}
