package store

import "errors"

// ErrUnknownFile is returned when an operation is given a File handle this
// Store never interned (or one interned by a different Store instance).
var ErrUnknownFile = errors.New("store: unknown file handle")
