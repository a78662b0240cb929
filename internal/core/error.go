package core

import "errors"

// Export failures are wrapped around one of these so callers can tell the
// phases apart with errors.Is. None of them are retried.
var (
	ErrInvalidRoute = errors.New("invalid route")
	ErrDataFetch    = errors.New("route data fetch failed")
	ErrSerialize    = errors.New("serialization failed")
	ErrRender       = errors.New("render failed")
	ErrWrite        = errors.New("write failed")
	ErrWorker       = errors.New("export worker failed")
)
