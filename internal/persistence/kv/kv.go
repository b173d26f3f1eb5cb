// Package kv is the key-value storage saves live in. Values are opaque
// strings; the chunk map stores one base64 blob per key.
package kv

import "context"

type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}
