package session

import (
	"context"
	"errors"
)

// Storage record keys. The key names are part of the durable layout
// shared with earlier versions of the portal; do not rename them.
const (
	KeyIdentity = "user"
	KeyPeriod   = "sessionEnCours"
)

// ErrNotFound is returned by Storage.Get when no record exists under
// the key. Any other error is treated as a storage failure.
var ErrNotFound = errors.New("session: record not found")

// Storage is the durable mirror of the store's in-memory state: two
// independently keyed JSON records. Implementations must be safe for
// concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
