package request

import "errors"

// ErrInternalServer is returned to clients when a handler panics or fails in
// a way that should not be exposed.
var ErrInternalServer = errors.New("internal server error")
