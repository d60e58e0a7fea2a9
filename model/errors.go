package model

import "errors"

// ErrContextOverflow is returned (wrapped) by providers when the backend
// rejects a request because the serialized conversation is too large.
var ErrContextOverflow = errors.New("context window exceeded")
