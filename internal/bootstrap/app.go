package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/yanqian/tutorials-api/internal/domain/tutorial"
	"github.com/yanqian/tutorials-api/internal/infra/config"
	"github.com/yanqian/tutorials-api/internal/infra/database"
	"github.com/yanqian/tutorials-api/internal/infra/tutorialrepo"
)

const shutdownTimeout = 10 * time.Second

// Phase is the bootstrap state of the process.
type Phase string

const (
	PhaseStarting        Phase = "starting"
	PhaseMiddlewareReady Phase = "middleware_ready"
	PhaseDBConnecting    Phase = "db_connecting"
	PhaseRoutesMounted   Phase = "routes_mounted"
	PhaseListening       Phase = "listening"
	PhaseRunning         Phase = "running"
	PhaseTerminated      Phase = "terminated"
)

// Reason explains a PhaseTerminated.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonDatabaseFailure Reason = "db_failure"
	ReasonPortInUse       Reason = "port_in_use"
	ReasonSocketError     Reason = "socket_error"
	ReasonShutdown        Reason = "shutdown"
)

// Process exit statuses chosen by cmd/app.
const (
	ExitCodeDatabaseUnavailable = 1
	ExitCodeAddressInUse        = 98
)

// ErrAddressInUse matches a ListenError caused by EADDRINUSE.
var ErrAddressInUse = errors.New("address already in use")

// ListenError is a bind or serve failure on the configured port.
type ListenError struct {
	Port string
	Err  error
}

func (e *ListenError) Error() string {
	return fmt.Sprintf("listen on port %s: %v", e.Port, e.Err)
}

func (e *ListenError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrAddressInUse) work without exposing syscall details.
func (e *ListenError) Is(target error) bool {
	return target == ErrAddressInUse && errors.Is(e.Err, syscall.EADDRINUSE)
}

// DatabaseError is the fail-fast result of the initial connection attempt.
type DatabaseError struct {
	Err error
}

func (e *DatabaseError) Error() string {
	return "cannot connect to the database: " + e.Err.Error()
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

type connector interface {
	Connect(ctx context.Context) (*database.Connection, error)
	Close(ctx context.Context) error
}

type resolver interface {
	Resolve(repo tutorial.Repository)
}

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	connector connector
	repo      resolver
	listen    func(network, address string) (net.Listener, error)

	mu     sync.RWMutex
	phase  Phase
	reason Reason
}

// NewApp is used by Wire to build the runnable app. The server passed in
// already carries its middleware and routes.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, connector *database.Connector, repo *tutorialrepo.DeferredRepository) *App {
	return newApp(cfg, logger, server, connector, repo)
}

func newApp(cfg *config.Config, logger *slog.Logger, server *http.Server, conn connector, repo resolver) *App {
	return &App{
		cfg:       cfg,
		logger:    logger.With("component", "bootstrap"),
		server:    server,
		connector: conn,
		repo:      repo,
		listen:    net.Listen,
		phase:     PhaseStarting,
	}
}

// Phase reports the current bootstrap phase.
func (a *App) Phase() Phase {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.phase
}

// Reason reports why the app terminated, if it did.
func (a *App) Reason() Reason {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reason
}

// Run starts the database connection and the HTTP server and blocks until
// ctx is cancelled or a fatal error occurs. The connection attempt is not
// awaited before listening unless database.awaitBeforeListen is set; until it
// succeeds tutorial routes answer 503.
//
// Run never exits the process. It returns *DatabaseError when the connection
// fails and *ListenError when binding or serving fails; cmd/app maps those to
// exit statuses.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.closeDatabase()

	a.setPhase(PhaseMiddlewareReady)

	dbResult := make(chan error, 1)
	a.setPhase(PhaseDBConnecting)
	go a.connect(runCtx, dbResult)

	if a.cfg.Database.AwaitBeforeListen {
		select {
		case err := <-dbResult:
			if err != nil && ctx.Err() == nil {
				return a.terminate(ReasonDatabaseFailure, &DatabaseError{Err: err})
			}
			dbResult = nil
			if ctx.Err() != nil {
				a.terminate(ReasonShutdown, nil)
				return nil
			}
		case <-ctx.Done():
			a.terminate(ReasonShutdown, nil)
			return nil
		}
	}

	a.setPhase(PhaseRoutesMounted)

	port := a.cfg.HTTP.Port
	ln, err := a.listen("tcp", a.cfg.HTTP.ListenAddress())
	if err != nil {
		return a.listenFailure(port, err)
	}
	a.setPhase(PhaseListening)
	a.logger.Info(fmt.Sprintf("Server is running on port %s.", port), "port", port, "address", ln.Addr().String())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.Serve(ln)
	}()
	a.setPhase(PhaseRunning)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("shutdown signal received")
			if err := a.shutdown(); err != nil {
				return err
			}
			a.terminate(ReasonShutdown, nil)
			return nil
		case err := <-dbResult:
			dbResult = nil
			if err != nil && ctx.Err() == nil {
				_ = a.shutdown()
				return a.terminate(ReasonDatabaseFailure, &DatabaseError{Err: err})
			}
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				a.terminate(ReasonShutdown, nil)
				return nil
			}
			return a.terminate(ReasonSocketError, &ListenError{Port: port, Err: err})
		}
	}
}

// connect makes the single connection attempt and reports it on result.
func (a *App) connect(ctx context.Context, result chan<- error) {
	conn, err := a.connector.Connect(ctx)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.Error("Cannot connect to the database!", "error", err)
		}
		result <- err
		return
	}
	a.repo.Resolve(conn.Repository)
	a.logger.Info("Connected to the database!", "driver", conn.Driver)
	result <- nil
}

func (a *App) listenFailure(port string, err error) error {
	lerr := &ListenError{Port: port, Err: err}
	if errors.Is(lerr, ErrAddressInUse) {
		a.logger.Error(fmt.Sprintf("Port %s is already in use. Stop the existing process or set a different PORT.", port), "port", port)
		return a.terminate(ReasonPortInUse, lerr)
	}
	return a.terminate(ReasonSocketError, lerr)
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return a.server.Shutdown(shutdownCtx)
}

func (a *App) closeDatabase() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.connector.Close(ctx); err != nil {
		a.logger.Warn("database close failed", "error", err)
	}
}

func (a *App) setPhase(p Phase) {
	a.mu.Lock()
	a.phase = p
	a.mu.Unlock()
	a.logger.Debug("bootstrap phase", "phase", p)
}

func (a *App) terminate(reason Reason, err error) error {
	a.mu.Lock()
	a.phase = PhaseTerminated
	a.reason = reason
	a.mu.Unlock()
	return err
}
