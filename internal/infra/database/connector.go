package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/internal/infra/config"
	"github.com/yanqian/tutorials-api/internal/infra/tutorialrepo"
	"github.com/yanqian/tutorials-api/pkg/metrics"
)

// State is the lifecycle of the single process-wide connection.
type State string

const (
	StateNotStarted State = "not_started"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateFailed     State = "failed"
)

var allStates = []string{string(StateNotStarted), string(StateConnecting), string(StateConnected), string(StateFailed)}

// Driver names a supported backend.
type Driver string

const (
	DriverMongo    Driver = "mongodb"
	DriverPostgres Driver = "postgres"
	DriverMemory   Driver = "memory"
)

// ErrEmptyURL is returned when no connection string was configured.
var ErrEmptyURL = errors.New("database url is empty")

// Connection is an established backend plus its tutorial repository.
type Connection struct {
	Driver     Driver
	Repository tutorial.Repository
	ping       func(ctx context.Context) error
	close      func(ctx context.Context) error
}

// Ping checks the backend is still reachable.
func (c *Connection) Ping(ctx context.Context) error {
	if c.ping == nil {
		return nil
	}
	return c.ping(ctx)
}

// Close releases the backend.
func (c *Connection) Close(ctx context.Context) error {
	if c.close == nil {
		return nil
	}
	return c.close(ctx)
}

// Dialer opens one backend.
type Dialer func(ctx context.Context, rawURL string, cfg config.DatabaseConfig) (*Connection, error)

// Decorator wraps the repository of a fresh connection, e.g. with a cache.
type Decorator func(tutorial.Repository) tutorial.Repository

// Connector performs the single fail-fast connection attempt.
type Connector struct {
	cfg      config.DatabaseConfig
	logger   *slog.Logger
	dialers  map[Driver]Dialer
	decorate Decorator

	mu    sync.RWMutex
	state State
	conn  *Connection
}

// NewConnector builds a connector for the configured URL.
func NewConnector(cfg *config.Config, logger *slog.Logger, decorate Decorator) *Connector {
	c := &Connector{
		cfg:    cfg.Database,
		logger: logger.With("component", "database"),
		dialers: map[Driver]Dialer{
			DriverMongo:    dialMongo,
			DriverPostgres: dialPostgres,
			DriverMemory:   dialMemory,
		},
		decorate: decorate,
	}
	c.setState(StateNotStarted)
	return c
}

// State reports the current connection state.
func (c *Connector) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Connection returns the live connection, or nil before a successful Connect.
func (c *Connector) Connection() *Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// Connect makes one attempt with no retry. The attempt has no deadline unless
// connectTimeout is configured.
func (c *Connector) Connect(ctx context.Context) (*Connection, error) {
	c.setState(StateConnecting)

	driver, err := DriverFor(c.cfg.URL)
	if err != nil {
		c.setState(StateFailed)
		return nil, err
	}
	c.logger.Info("connecting to database",
		"driver", driver,
		"useNewUrlParser", c.cfg.Options.UseNewURLParser,
		"useUnifiedTopology", c.cfg.Options.UseUnifiedTopology,
		"connectTimeout", c.cfg.ConnectTimeout,
	)

	if c.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()
	}

	conn, err := c.dialers[driver](ctx, c.cfg.URL, c.cfg)
	if err != nil {
		c.setState(StateFailed)
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if c.decorate != nil {
		conn.Repository = c.decorate(conn.Repository)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.setState(StateConnected)
	return conn, nil
}

// Close disconnects the live connection if any.
func (c *Connector) Close(ctx context.Context) error {
	conn := c.Connection()
	if conn == nil {
		return nil
	}
	return conn.Close(ctx)
}

func (c *Connector) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	metrics.SetDatabaseState(string(s), allStates)
}

// DriverFor picks the backend from the URL scheme.
func DriverFor(rawURL string) (Driver, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrEmptyURL
	}
	scheme, _, ok := strings.Cut(rawURL, "://")
	if !ok {
		return "", fmt.Errorf("database url %q has no scheme", redact(rawURL))
	}
	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return DriverMongo, nil
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "memory":
		return DriverMemory, nil
	default:
		return "", fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

func dialMongo(ctx context.Context, rawURL string, cfg config.DatabaseConfig) (*Connection, error) {
	opts := options.Client().ApplyURI(rawURL)
	if cfg.MaxConns > 0 {
		opts.SetMaxPoolSize(uint64(cfg.MaxConns))
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	db := client.Database(mongoDatabaseName(rawURL, cfg.Name))
	return &Connection{
		Driver:     DriverMongo,
		Repository: tutorialrepo.NewMongoRepository(db),
		ping:       func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		close:      client.Disconnect,
	}, nil
}

func dialPostgres(ctx context.Context, rawURL string, cfg config.DatabaseConfig) (*Connection, error) {
	poolConfig, err := pgxpool.ParseConfig(rawURL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	repo := tutorialrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Connection{
		Driver:     DriverPostgres,
		Repository: repo,
		ping:       pool.Ping,
		close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func dialMemory(context.Context, string, config.DatabaseConfig) (*Connection, error) {
	return &Connection{Driver: DriverMemory, Repository: tutorialrepo.NewMemoryRepository()}, nil
}

// mongoDatabaseName prefers the database in the URL path over the configured name.
func mongoDatabaseName(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		if name := strings.Trim(parsed.Path, "/"); name != "" {
			return name
		}
	}
	if fallback == "" {
		return "tutorials"
	}
	return fallback
}

func redact(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.User == nil {
		return rawURL
	}
	return parsed.Redacted()
}
