package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/internal/infra/config"
	"github.com/yanqian/tutorials-api/internal/infra/tutorialrepo"
)

func newConnectorUnderTest(url string, decorate Decorator) *Connector {
	cfg := &config.Config{Database: config.DatabaseConfig{
		URL: url,
		Options: config.DatabaseOptions{
			UseNewURLParser:    true,
			UseUnifiedTopology: true,
		},
	}}
	return NewConnector(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), decorate)
}

func TestDriverFor(t *testing.T) {
	tests := map[string]Driver{
		"mongodb://localhost:27017/db":     DriverMongo,
		"mongodb+srv://cluster.example/db": DriverMongo,
		"postgres://u:p@localhost/db":      DriverPostgres,
		"postgresql://localhost/db":        DriverPostgres,
		"memory://":                        DriverMemory,
	}
	for url, want := range tests {
		got, err := DriverFor(url)
		require.NoError(t, err, url)
		require.Equal(t, want, got, url)
	}

	_, err := DriverFor("  ")
	require.ErrorIs(t, err, ErrEmptyURL)
	_, err = DriverFor("mysql://localhost/db")
	require.ErrorContains(t, err, "unsupported database scheme")
	_, err = DriverFor("localhost:27017")
	require.ErrorContains(t, err, "has no scheme")
}

func TestConnect_MemoryAcceptsLegacyOptions(t *testing.T) {
	c := newConnectorUnderTest("memory://", nil)
	require.Equal(t, StateNotStarted, c.State())

	conn, err := c.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, DriverMemory, conn.Driver)
	require.Equal(t, StateConnected, c.State())
	require.Same(t, conn, c.Connection())
	require.NoError(t, conn.Ping(context.Background()))
	require.NoError(t, c.Close(context.Background()))
}

func TestConnect_FailureMarksFailed(t *testing.T) {
	c := newConnectorUnderTest("", nil)

	_, err := c.Connect(context.Background())
	require.ErrorIs(t, err, ErrEmptyURL)
	require.Equal(t, StateFailed, c.State())
	require.Nil(t, c.Connection())
}

func TestConnect_DialerErrorIsWrapped(t *testing.T) {
	c := newConnectorUnderTest("mongodb://db.invalid:27017", nil)
	boom := errors.New("connection refused")
	c.dialers[DriverMongo] = func(context.Context, string, config.DatabaseConfig) (*Connection, error) {
		return nil, boom
	}

	_, err := c.Connect(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "connect mongodb")
	require.Equal(t, StateFailed, c.State())
}

func TestConnect_TimeoutOnlyWhenConfigured(t *testing.T) {
	c := newConnectorUnderTest("postgres://localhost/db", nil)
	c.cfg.ConnectTimeout = 20 * time.Millisecond
	c.dialers[DriverPostgres] = func(ctx context.Context, _ string, _ config.DatabaseConfig) (*Connection, error) {
		_, hasDeadline := ctx.Deadline()
		require.True(t, hasDeadline)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := c.Connect(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	c.cfg.ConnectTimeout = 0
	c.dialers[DriverPostgres] = func(ctx context.Context, _ string, _ config.DatabaseConfig) (*Connection, error) {
		_, hasDeadline := ctx.Deadline()
		require.False(t, hasDeadline)
		return dialMemory(ctx, "", config.DatabaseConfig{})
	}
	_, err = c.Connect(context.Background())
	require.NoError(t, err)
}

func TestConnect_AppliesDecorator(t *testing.T) {
	var wrapped tutorial.Repository
	c := newConnectorUnderTest("memory://", func(inner tutorial.Repository) tutorial.Repository {
		wrapped = inner
		deferred := tutorialrepo.NewDeferredRepository()
		deferred.Resolve(inner)
		return deferred
	})

	conn, err := c.Connect(context.Background())
	require.NoError(t, err)
	require.IsType(t, &tutorialrepo.MemoryRepository{}, wrapped)
	require.IsType(t, &tutorialrepo.DeferredRepository{}, conn.Repository)
}

func TestMongoDatabaseName(t *testing.T) {
	require.Equal(t, "bezkoder_db", mongoDatabaseName("mongodb://localhost:27017/bezkoder_db", "tutorials"))
	require.Equal(t, "tutorials", mongoDatabaseName("mongodb://localhost:27017", "tutorials"))
	require.Equal(t, "tutorials", mongoDatabaseName("mongodb://localhost:27017/", ""))
}
