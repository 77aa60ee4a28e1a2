package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/duelgame/internal/dependencies/clock"
	"github.com/mcoot/duelgame/internal/fanout"
	"github.com/mcoot/duelgame/internal/fanout/redisbus"
	"github.com/mcoot/duelgame/internal/services/auth"
	"github.com/mcoot/duelgame/internal/services/invite"
	"github.com/mcoot/duelgame/internal/services/moves"
	"github.com/mcoot/duelgame/internal/services/presence"
	"github.com/mcoot/duelgame/internal/services/session"
	"github.com/mcoot/duelgame/internal/storage"
	"github.com/mcoot/duelgame/internal/storage/memory"
	redisstorage "github.com/mcoot/duelgame/internal/storage/redis"
	"github.com/mcoot/duelgame/internal/transport"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// Fanout type constants
const (
	FanoutTypeLocal = "local"
	FanoutTypeRedis = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock

	// Fanout. Broker is what transports subscribe to; Publisher is what
	// services publish through (the broker itself, or the Redis bus feeding it)
	Broker      *fanout.Broker
	Bus         *redisbus.Bus
	Publisher   fanout.Publisher
	Broadcaster *fanout.Broadcaster

	// Services
	Presence    *presence.Registry
	Sessions    *session.Store
	Moves       *moves.Processor
	Invites     *invite.Coordinator
	AuthService *auth.Service

	// Streams counts open SSE and websocket streams per player
	Streams *transport.Streams

	closers []func() error
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service. Secret is required.
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// FanoutType selects event delivery ("local" or "redis")
	// If empty, defaults to "local"
	FanoutType string
	// FanoutConfig holds buffer sizes (optional)
	// If zero value, defaults to fanout.DefaultConfig()
	FanoutConfig fanout.Config
	// RedisConfig holds Redis connection settings (required if either type is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []func() error
	var redisClient *redis.Client

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
		redisClient = redisStore.Client()
		closers = append(closers, redisStore.Close)
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	fanoutType := cfg.FanoutType
	if fanoutType == "" {
		fanoutType = FanoutTypeLocal
	}
	switch fanoutType {
	case FanoutTypeLocal:
	case FanoutTypeRedis:
		if redisClient == nil {
			if cfg.RedisConfig == nil {
				return nil, errors.New("RedisConfig required when FanoutType is redis")
			}
			client, err := dialRedis(*cfg.RedisConfig)
			if err != nil {
				return nil, err
			}
			redisClient = client
			closers = append(closers, client.Close)
		}
	default:
		return nil, errors.New("invalid FanoutType: must be 'local' or 'redis'")
	}

	fanoutCfg := cfg.FanoutConfig
	if fanoutCfg.SubscriberBuffer == 0 || fanoutCfg.HubBuffer == 0 {
		fanoutCfg = fanout.DefaultConfig()
	}

	app, err := newWithDependencies(store, clock.New(), cfg.AuthConfig, fanoutCfg, redisClient, logger)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	app.closers = closers
	return app, nil
}

func dialRedis(cfg redisstorage.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing).
// A non-nil redisClient switches event publishing onto the Redis bus.
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	authCfg auth.Config,
	fanoutCfg fanout.Config,
	redisClient *redis.Client,
	logger *slog.Logger,
) (*App, error) {
	broker := fanout.NewBroker(fanoutCfg, clk, logger)

	var bus *redisbus.Bus
	var publisher fanout.Publisher = broker
	if redisClient != nil {
		bus = redisbus.New(redisClient, broker, logger)
		publisher = bus
	}
	broadcaster := fanout.NewBroadcaster(publisher, clk, logger)

	// Create services
	presenceRegistry := presence.New(store, broadcaster, logger)
	sessionStore := session.New(store, clk, logger)
	moveProcessor := moves.New(sessionStore, clk, logger)
	inviteCoordinator := invite.New(store, sessionStore, broadcaster, logger)
	authService, err := auth.New(store, presenceRegistry, clk, authCfg, logger)
	if err != nil {
		return nil, err
	}
	streams := transport.NewStreams(broker, sessionStore, presenceRegistry, logger)

	return &App{
		Storage:     store,
		Clock:       clk,
		Broker:      broker,
		Bus:         bus,
		Publisher:   publisher,
		Broadcaster: broadcaster,
		Presence:    presenceRegistry,
		Sessions:    sessionStore,
		Moves:       moveProcessor,
		Invites:     inviteCoordinator,
		AuthService: authService,
		Streams:     streams,
	}, nil
}

// Close shuts down the broker and releases backend connections
func (a *App) Close() error {
	a.Broker.Close()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
