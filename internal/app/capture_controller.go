package app

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"vaultai/internal/model"
)

// Device grants access to an audio input.
type Device interface {
	RequestAccess(ctx context.Context) (Recorder, error)
}

// Recorder is one granted audio stream. Start delivers encoded chunks to
// onChunk until Finalize returns; every chunk is delivered before that.
type Recorder interface {
	Start(onChunk func([]byte)) error
	Finalize(ctx context.Context) error
	Release() error
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// CaptureController runs the Idle -> Recording -> Finalizing -> Idle cycle
// of one voice question.
type CaptureController struct {
	mu          sync.Mutex
	device      Device
	transcriber Transcriber
	state       model.CaptureState
	acquiring   bool
	recorder    Recorder
	segments    [][]byte
	session     uint64
	onChange    func()
	logger      *zap.Logger
}

func NewCaptureController(device Device, transcriber Transcriber, logger *zap.Logger) *CaptureController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CaptureController{
		device:      device,
		transcriber: transcriber,
		state:       model.CaptureIdle,
		logger:      logger,
	}
}

func (c *CaptureController) State() model.CaptureState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start requests the device and begins recording. It fails with
// ErrCaptureActive unless the controller is idle.
func (c *CaptureController) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != model.CaptureIdle || c.acquiring {
		c.mu.Unlock()
		return ErrCaptureActive
	}
	c.acquiring = true
	c.mu.Unlock()

	rec, err := c.device.RequestAccess(ctx)
	if err != nil {
		c.mu.Lock()
		c.acquiring = false
		c.mu.Unlock()
		c.logger.Warn("audio device access denied", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	c.mu.Lock()
	c.session++
	session := c.session
	c.segments = nil
	c.recorder = rec
	c.mu.Unlock()

	if err := rec.Start(func(chunk []byte) { c.appendChunk(session, chunk) }); err != nil {
		if releaseErr := rec.Release(); releaseErr != nil {
			c.logger.Warn("release audio device failed", zap.Error(releaseErr))
		}
		c.mu.Lock()
		c.acquiring = false
		c.recorder = nil
		c.segments = nil
		c.mu.Unlock()
		return fmt.Errorf("start recorder failed: %w", err)
	}

	c.mu.Lock()
	c.state = model.CaptureRecording
	c.acquiring = false
	c.mu.Unlock()
	c.changed()
	return nil
}

// Stop finalizes the recording, submits the accumulated audio for
// transcription, and returns the transcript. An empty recording is still
// submitted. The device is released and the controller returns to Idle
// whatever the outcome.
func (c *CaptureController) Stop(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != model.CaptureRecording {
		c.mu.Unlock()
		return "", ErrNotRecording
	}
	c.state = model.CaptureFinalizing
	rec := c.recorder
	c.mu.Unlock()
	c.changed()

	defer c.reset(rec)

	if err := rec.Finalize(ctx); err != nil {
		return "", fmt.Errorf("finalize recording failed: %w", err)
	}

	c.mu.Lock()
	payload := bytes.Join(c.segments, nil)
	c.mu.Unlock()

	c.logger.Debug("submitting recording", zap.Int("bytes", len(payload)))
	return c.transcriber.Transcribe(ctx, payload)
}

func (c *CaptureController) reset(rec Recorder) {
	if err := rec.Release(); err != nil {
		c.logger.Warn("release audio device failed", zap.Error(err))
	}
	c.mu.Lock()
	c.state = model.CaptureIdle
	c.recorder = nil
	c.segments = nil
	c.mu.Unlock()
	c.changed()
}

func (c *CaptureController) appendChunk(session uint64, chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if session != c.session || c.recorder == nil {
		return
	}
	c.segments = append(c.segments, append([]byte(nil), chunk...))
}

func (c *CaptureController) setOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *CaptureController) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
