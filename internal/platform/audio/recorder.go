package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"

	"vaultai/internal/app"
)

const defaultChunkBytes = 4096

var ErrNoCommand = errors.New("capture command is empty")

// CommandDevice records by running an external capture program that writes
// encoded audio to stdout, e.g. arecord or ffmpeg.
type CommandDevice struct {
	argv       []string
	chunkBytes int
	logger     *zap.Logger
}

func NewCommandDevice(command string, chunkBytes int, logger *zap.Logger) *CommandDevice {
	if chunkBytes <= 0 {
		chunkBytes = defaultChunkBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandDevice{argv: strings.Fields(command), chunkBytes: chunkBytes, logger: logger}
}

// RequestAccess fails when the capture program cannot be found.
func (d *CommandDevice) RequestAccess(ctx context.Context) (app.Recorder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(d.argv) == 0 {
		return nil, ErrNoCommand
	}
	path, err := exec.LookPath(d.argv[0])
	if err != nil {
		return nil, fmt.Errorf("find capture program failed: %w", err)
	}
	return &commandRecorder{
		path:       path,
		args:       d.argv[1:],
		chunkBytes: d.chunkBytes,
		logger:     d.logger,
	}, nil
}

type commandRecorder struct {
	path       string
	args       []string
	chunkBytes int
	logger     *zap.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	readDone chan struct{}
	waited   bool
}

func (r *commandRecorder) Start(onChunk func([]byte)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return errors.New("recorder already started")
	}

	cmd := exec.Command(r.path, r.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open capture output failed: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start capture program failed: %w", err)
	}
	r.cmd = cmd
	r.readDone = make(chan struct{})

	go r.pump(stdout, onChunk)
	r.logger.Debug("capture started", zap.String("program", r.path), zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (r *commandRecorder) pump(stdout io.Reader, onChunk func([]byte)) {
	defer close(r.readDone)
	buf := make([]byte, r.chunkBytes)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			onChunk(chunk)
		}
		if err != nil {
			if err != io.EOF {
				r.logger.Debug("capture output closed", zap.Error(err))
			}
			return
		}
	}
}

// Finalize interrupts the capture program and returns once its remaining
// output has been delivered.
func (r *commandRecorder) Finalize(ctx context.Context) error {
	r.mu.Lock()
	cmd, done := r.cmd, r.readDone
	r.mu.Unlock()
	if cmd == nil {
		return errors.New("recorder not started")
	}

	// The program may already have exited on its own.
	_ = cmd.Process.Signal(os.Interrupt)

	select {
	case <-done:
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		r.wait()
		return ctx.Err()
	}
	return r.wait()
}

func (r *commandRecorder) wait() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.waited || r.cmd == nil {
		return nil
	}
	r.waited = true

	err := r.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Exiting on the interrupt is the normal end of a recording.
		r.logger.Debug("capture program exited", zap.Int("code", exitErr.ExitCode()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("wait for capture program failed: %w", err)
	}
	return nil
}

// Release kills the capture program if it is still running. It is safe to
// call more than once.
func (r *commandRecorder) Release() error {
	r.mu.Lock()
	cmd, done, waited := r.cmd, r.readDone, r.waited
	r.mu.Unlock()
	if cmd == nil || waited {
		return nil
	}

	_ = cmd.Process.Kill()
	<-done
	return r.wait()
}
