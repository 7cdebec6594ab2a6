package dex

import "errors"

// ErrNotFound is returned when the upstream has no such species.
var ErrNotFound = errors.New("species not found")
