package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yanqian/tutorials-api/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := initializeApp()
	if err != nil {
		log.Fatalf("failed to wire application: %v", err)
	}

	if err := app.Run(ctx); err != nil {
		code, logged := exitCode(err)
		if !logged {
			log.Printf("application stopped with error: %v", err)
		}
		stop()
		os.Exit(code)
	}
}

// exitCode maps a Run failure to a process status. logged reports whether Run
// already wrote the failure to the log. Socket errors other than EADDRINUSE
// are not handled and crash the process.
func exitCode(err error) (code int, logged bool) {
	var (
		dbErr     *bootstrap.DatabaseError
		listenErr *bootstrap.ListenError
	)
	switch {
	case errors.As(err, &dbErr):
		return bootstrap.ExitCodeDatabaseUnavailable, true
	case errors.Is(err, bootstrap.ErrAddressInUse):
		return bootstrap.ExitCodeAddressInUse, true
	case errors.As(err, &listenErr):
		panic(err)
	default:
		return 1, false
	}
}
