package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/itory/itory/internal/adapters/generation"
	adapterstorage "github.com/itory/itory/internal/adapters/storage"
	"github.com/itory/itory/internal/config"
	"github.com/itory/itory/internal/logging"
	"github.com/itory/itory/internal/ports"
	"github.com/itory/itory/internal/services"
)

// ContainerOptions selects the adapters wired into a Container
type ContainerOptions struct {
	APIURL       string
	PollInterval time.Duration
	RedisAddr    string
	SessionTTL   time.Duration
	Slot         string
	Store        string
}

// Container holds all dependencies for the application
type Container struct {
	// Adapters
	Client *generation.Client

	// Services
	Controller   *services.StageController
	Poller       *services.JobPoller
	SessionStore *services.SessionStore

	// Internal - for cleanup only
	snapshots ports.SnapshotStore
}

// NewContainer creates a new Container with all dependencies wired
func NewContainer(ctx context.Context, opts ContainerOptions) (*Container, error) {
	snapshots, err := newSnapshotStore(ctx, opts)
	if err != nil {
		return nil, err
	}

	client := generation.New(opts.APIURL)
	poller := services.NewJobPoller(client, opts.PollInterval)
	sessionStore := services.NewSessionStore(snapshots, opts.Slot)
	controller := services.NewStageController(client, poller, sessionStore)

	logging.Logger.Debug("Container created", "store", opts.Store, "slot", sessionStore.Key())

	return &Container{
		Client:       client,
		Controller:   controller,
		Poller:       poller,
		SessionStore: sessionStore,
		snapshots:    snapshots,
	}, nil
}

func newSnapshotStore(ctx context.Context, opts ContainerOptions) (ports.SnapshotStore, error) {
	switch opts.Store {
	case config.StoreMemory:
		return adapterstorage.NewMemoryStore(), nil
	case config.StoreRedis:
		return adapterstorage.NewRedisStore(ctx, opts.RedisAddr, opts.SessionTTL)
	case config.StoreSQLite, "":
		return adapterstorage.NewSQLiteStore(config.GetDBPath(), opts.SessionTTL)
	default:
		return nil, fmt.Errorf("unknown store %q", opts.Store)
	}
}

// Close stops background polling and closes the snapshot store
func (c *Container) Close() error {
	if c.Controller != nil {
		c.Controller.Close()
	}
	if c.snapshots != nil {
		return c.snapshots.Close()
	}
	return nil
}
