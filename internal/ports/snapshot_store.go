package ports

import "context"

// SnapshotStore is a durable key/value store for serialized sessions.
// Load returns (nil, nil) when no record exists for the key.
type SnapshotStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, payload []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
