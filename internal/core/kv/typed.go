package kv

import (
	"context"
	"time"
)

// TypedKV provides type-safe access to a KV store for a specific type T.
type TypedKV[T any] struct {
	store  KV
	prefix string
}

// Scoped returns a TypedKV[T] that prefixes all keys with "namespace:".
func Scoped[T any](store KV, namespace string) *TypedKV[T] {
	return &TypedKV[T]{
		store:  store,
		prefix: namespace + ":",
	}
}

// Prefix returns the namespace prefix including the trailing colon.
func (t *TypedKV[T]) Prefix() string {
	return t.prefix
}

// Get retrieves and deserializes a value by key.
func (t *TypedKV[T]) Get(ctx context.Context, key string) (T, error) {
	var v T
	if err := t.store.Get(ctx, t.prefix+key, &v); err != nil {
		return v, err
	}
	return v, nil
}

// SetTTL stores a value that expires after the given duration.
func (t *TypedKV[T]) SetTTL(ctx context.Context, key string, value T, ttl time.Duration) error {
	return t.store.SetTTL(ctx, t.prefix+key, value, ttl)
}

// Delete removes a key.
func (t *TypedKV[T]) Delete(ctx context.Context, key string) error {
	return t.store.Delete(ctx, t.prefix+key)
}

// Clear removes every key in the namespace.
func (t *TypedKV[T]) Clear(ctx context.Context) (int64, error) {
	return t.store.DeletePrefix(ctx, t.prefix)
}

// Remember returns the cached value for key when present. Otherwise it calls
// fetch and caches a successful result for ttl. The bool result reports a
// cache hit. Cache write failures are returned alongside the fetched value.
func (t *TypedKV[T]) Remember(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, bool, error) {
	if v, err := t.Get(ctx, key); err == nil {
		return v, true, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		return v, false, err
	}

	if err := t.SetTTL(ctx, key, v, ttl); err != nil {
		return v, false, err
	}

	return v, false, nil
}
