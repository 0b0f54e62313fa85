package main

import (
	"errors"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/tutorials-api/internal/bootstrap"
)

func TestExitCode_DatabaseFailure(t *testing.T) {
	code, logged := exitCode(&bootstrap.DatabaseError{Err: errors.New("refused")})
	require.Equal(t, bootstrap.ExitCodeDatabaseUnavailable, code)
	require.True(t, logged)
}

func TestExitCode_AddressInUse(t *testing.T) {
	err := &bootstrap.ListenError{
		Port: "8080",
		Err:  &net.OpError{Op: "listen", Net: "tcp", Err: os.NewSyscallError("bind", syscall.EADDRINUSE)},
	}
	code, logged := exitCode(err)
	require.Equal(t, bootstrap.ExitCodeAddressInUse, code)
	require.True(t, logged)
}

func TestExitCode_OtherSocketErrorPanics(t *testing.T) {
	err := &bootstrap.ListenError{Port: "80", Err: os.NewSyscallError("bind", syscall.EACCES)}
	require.Panics(t, func() { exitCode(err) })
}

func TestExitCode_Unexpected(t *testing.T) {
	code, logged := exitCode(errors.New("shutdown timed out"))
	require.Equal(t, 1, code)
	require.False(t, logged)
}
