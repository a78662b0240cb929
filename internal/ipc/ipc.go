// Package ipc defines the messages exchanged between the export process and
// its workers. A worker reads one Dispatch from stdin and writes a stream of
// Signals to stdout.
package ipc

import (
	"encoding/json"

	"github.com/3-lines-studio/prerender/internal/core"
)

// Dispatch is everything a worker needs to render its shard. Configuration
// travels by path and is reloaded in the worker. Site data and route props
// travel as the JSON the parent encoded.
type Dispatch struct {
	ConfigPath            string            `cbor:"config_path"`
	Routes                []core.Route      `cbor:"routes"`
	SiteData              json.RawMessage   `cbor:"site_data"`
	ClientStats           *core.ClientStats `cbor:"client_stats"`
	DefaultOutputFileRate int               `cbor:"default_output_file_rate"`
	Staging               bool              `cbor:"staging"`
}

type SignalType string

const (
	// SignalTick reports one rendered route.
	SignalTick SignalType = "tick"
	// SignalError reports a failure; the worker exits after sending it.
	SignalError SignalType = "error"
	// SignalDone reports that the whole shard was rendered.
	SignalDone SignalType = "done"
)

type Signal struct {
	Type SignalType `cbor:"type"`
	Err  string     `cbor:"err,omitempty"`
}

func Tick() Signal {
	return Signal{Type: SignalTick}
}

func Done() Signal {
	return Signal{Type: SignalDone}
}

func Error(err error) Signal {
	return Signal{Type: SignalError, Err: err.Error()}
}
