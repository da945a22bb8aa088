package domain

import "errors"

// ErrNotFound marks lookups for entities that do not exist. Transports
// translate it to their own not-found representation.
var ErrNotFound = errors.New("not found")
