package store

import "errors"

// ErrStorageEngine marks a failure reported by the embedded storage
// engine. The operation is aborted; rows committed before the failure
// stay committed. Callers match it with errors.Is and decide whether
// to drop the triggering session.
var ErrStorageEngine = errors.New("storage engine failure")
