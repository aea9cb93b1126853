package worker

import "errors"

// ErrStaleEvent rejects an update event whose predecessor version has not
// been applied locally. The message stays unacked and is redelivered.
var ErrStaleEvent = errors.New("stale or out-of-order event")
