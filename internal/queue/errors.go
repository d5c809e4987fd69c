package queue

import "errors"

// ErrNotFound indicates the requested job does not exist.
var ErrNotFound = errors.New("queue job not found")
