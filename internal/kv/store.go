// Package kv is a string-keyed blob store in the spirit of browser local
// storage: synchronous get/set/delete of opaque JSON values, no TTL, no
// transactions. Concurrent writers from other processes are last-write-wins;
// readers must tolerate missing or malformed values.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kv: key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
