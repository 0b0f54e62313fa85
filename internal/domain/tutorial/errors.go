package tutorial

import "errors"

// ErrNotConnected is returned by repositories while the database connection is pending or failed.
var ErrNotConnected = errors.New("database is not connected")
