// Package kvstore is the document storage collaborator behind the ledger
// repository: whole JSON documents addressed by string keys.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when the key holds no document.
var ErrNotFound = errors.New("kvstore: key not found")

// Entry is a single key/value write inside a batch.
type Entry struct {
	Key   string
	Value []byte
}

// Store reads and writes whole documents. Implementations must be safe for
// concurrent use; WriteBatch applies all entries or none.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	WriteBatch(ctx context.Context, entries []Entry) error
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
