package sentinel

import "errors"

// ErrUnavailable marks a backend or capability as temporarily unavailable.
// Adapters return it (optionally wrapped) so callers can distinguish outage
// from rejection with errors.Is.
var ErrUnavailable = errors.New("unavailable")
