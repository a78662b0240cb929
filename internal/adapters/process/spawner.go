package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/3-lines-studio/prerender/internal/adapters/env"
	"github.com/3-lines-studio/prerender/internal/codec"
	"github.com/3-lines-studio/prerender/internal/fanout"
	"github.com/3-lines-studio/prerender/internal/ipc"
)

// waitDelay bounds how long Wait blocks on pipes after the child is killed.
const waitDelay = 2 * time.Second

// Spawner starts workers by re-executing a binary with PRERENDER_WORKER=1.
// The dispatch goes to the child's stdin; signals come back on its stdout.
type Spawner struct {
	executable string
	args       []string
	stderr     io.Writer
	logger     *slog.Logger
}

// NewSpawner re-executes the running binary with args.
func NewSpawner(logger *slog.Logger, args ...string) (*Spawner, error) {
	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	return NewSpawnerFor(executable, logger, args...), nil
}

func NewSpawnerFor(executable string, logger *slog.Logger, args ...string) *Spawner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Spawner{
		executable: executable,
		args:       args,
		stderr:     os.Stderr,
		logger:     logger,
	}
}

func (s *Spawner) Spawn(ctx context.Context, dispatch ipc.Dispatch) (fanout.Worker, error) {
	cmd := exec.CommandContext(ctx, s.executable, s.args...)
	cmd.Env = env.WorkerEnviron(os.Environ())
	cmd.Stderr = s.stderr
	cmd.WaitDelay = waitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	w := &Worker{
		cmd:     cmd,
		signals: make(chan ipc.Signal),
		read:    make(chan struct{}),
	}

	go func() {
		err := codec.NewEncoder(stdin).Encode(dispatch)
		if closeErr := stdin.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			s.logger.Debug("send dispatch", "pid", cmd.Process.Pid, "error", err)
		}
	}()

	go w.readSignals(stdout)

	return w, nil
}

// Worker is a running worker process.
type Worker struct {
	cmd     *exec.Cmd
	signals chan ipc.Signal
	read    chan struct{}
	readErr error
}

func (w *Worker) Signals() <-chan ipc.Signal {
	return w.signals
}

func (w *Worker) readSignals(stdout io.Reader) {
	defer close(w.read)
	defer close(w.signals)

	dec := codec.NewDecoder(stdout)
	for {
		var sig ipc.Signal
		if err := dec.Decode(&sig); err != nil {
			if !errors.Is(err, io.EOF) {
				w.readErr = err
			}
			return
		}
		w.signals <- sig
	}
}

// Wait waits for the process to exit once its signal stream has ended.
func (w *Worker) Wait() error {
	<-w.read
	err := w.cmd.Wait()
	if err == nil && w.readErr != nil {
		return fmt.Errorf("read worker signals: %w", w.readErr)
	}
	return err
}
