package worker

import (
	"context"
	"errors"
	"io"

	"github.com/3-lines-studio/prerender/internal/codec"
	"github.com/3-lines-studio/prerender/internal/fanout"
	"github.com/3-lines-studio/prerender/internal/ipc"
)

// LocalSpawner runs workers as goroutines in the current process, talking
// over in-memory pipes with the same codec as worker processes.
type LocalSpawner struct {
	Setup Setup
}

func (s LocalSpawner) Spawn(ctx context.Context, dispatch ipc.Dispatch) (fanout.Worker, error) {
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	w := &localWorker{
		signals: make(chan ipc.Signal),
		served:  make(chan struct{}),
		read:    make(chan struct{}),
	}

	go func() {
		err := codec.NewEncoder(inW).Encode(dispatch)
		inW.CloseWithError(err)
	}()

	go func() {
		defer close(w.served)
		w.err = Serve(ctx, inR, outW, s.Setup)
		inR.Close()
		outW.Close()
	}()

	go func() {
		defer close(w.read)
		defer close(w.signals)

		dec := codec.NewDecoder(outR)
		for {
			var sig ipc.Signal
			if err := dec.Decode(&sig); err != nil {
				if !errors.Is(err, io.EOF) {
					outR.CloseWithError(err)
				}
				return
			}
			w.signals <- sig
		}
	}()

	return w, nil
}

type localWorker struct {
	signals chan ipc.Signal
	served  chan struct{}
	read    chan struct{}
	err     error
}

func (w *localWorker) Signals() <-chan ipc.Signal {
	return w.signals
}

func (w *localWorker) Wait() error {
	<-w.read
	<-w.served
	return w.err
}
