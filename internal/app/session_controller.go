package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"vaultai/internal/backend"
	"vaultai/internal/model"
)

type AnswerSource interface {
	OpenAnswerStream(ctx context.Context, question string) (io.ReadCloser, error)
}

type SessionResetter interface {
	ClearSession(ctx context.Context) error
}

// Snapshot is a consistent copy of the session state for rendering.
type Snapshot struct {
	Messages []model.Message
	Uploads  []model.UploadEntry
	Capture  model.CaptureState
}

// Observer receives a snapshot after every state change. Observers run
// synchronously and must not call back into the controller.
type Observer func(Snapshot)

// SessionController owns the ordered message log and coordinates uploads,
// voice capture, citations and session reset.
type SessionController struct {
	mu        sync.Mutex
	messages  []model.Message
	epoch     uint64
	cancelAsk context.CancelFunc

	asking *semaphore.Weighted

	answers   AnswerSource
	resetter  SessionResetter
	uploads   *UploadRegistry
	capture   *CaptureController
	citations *CitationRouter

	notifyMu  sync.Mutex
	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int

	logger *zap.Logger
}

func NewSessionController(
	answers AnswerSource,
	resetter SessionResetter,
	uploads *UploadRegistry,
	capture *CaptureController,
	citations *CitationRouter,
	logger *zap.Logger,
) *SessionController {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &SessionController{
		asking:    semaphore.NewWeighted(1),
		answers:   answers,
		resetter:  resetter,
		uploads:   uploads,
		capture:   capture,
		citations: citations,
		observers: make(map[int]Observer),
		logger:    logger,
	}
	if uploads != nil {
		uploads.setOnChange(c.notify)
	}
	if capture != nil {
		capture.setOnChange(c.notify)
	}
	return c
}

// Ask appends the question and a streaming placeholder, then fills the
// placeholder from the answer stream. Stream failures end up in the
// placeholder text and are also returned.
func (c *SessionController) Ask(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrQuestionEmpty
	}
	if !c.asking.TryAcquire(1) {
		return ErrQuestionInFlight
	}
	defer c.asking.Release(1)

	askCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	epoch := c.epoch
	c.messages = append(c.messages, model.NewUserMessage(question), model.NewPendingAnswer())
	idx := len(c.messages) - 1
	c.cancelAsk = cancel
	c.mu.Unlock()
	c.notify()

	c.logger.Info("question submitted", zap.Int("chars", len(question)))

	assembler := NewStreamAssembler(c.logger)
	var final StreamUpdate
	stream, err := c.answers.OpenAnswerStream(askCtx, question)
	if err != nil {
		final, _ = assembler.Fail(err)
		c.apply(epoch, idx, final)
	} else {
		final = assembler.Run(askCtx, stream, func(update StreamUpdate) {
			c.apply(epoch, idx, update)
		})
		if closeErr := stream.Close(); closeErr != nil {
			c.logger.Debug("close answer stream failed", zap.Error(closeErr))
		}
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.cancelAsk = nil
	}
	c.mu.Unlock()

	if final.Err != nil {
		c.logger.Warn("answer failed", zap.Error(final.Err))
	}
	return final.Err
}

// apply rewrites the placeholder at idx. Updates from before a reset, or
// for a placeholder that already reached its terminal state, are dropped.
func (c *SessionController) apply(epoch uint64, idx int, update StreamUpdate) {
	c.mu.Lock()
	if epoch != c.epoch || idx >= len(c.messages) || !c.messages[idx].Streaming {
		c.mu.Unlock()
		return
	}
	msg := c.messages[idx]
	msg.Content = update.Text
	msg.Citations = cloneCitations(update.Citations)
	msg.Streaming = update.Streaming
	c.messages[idx] = msg
	c.mu.Unlock()
	c.notify()
}

// Clear resets the backend session, then discards the message log and the
// upload list and abandons any in-flight answer. A backend that answered
// with an error still gets the local reset and the error is returned. When
// the backend could not be reached nothing local changes, because the
// server side documents are still there.
func (c *SessionController) Clear(ctx context.Context) error {
	resetErr := c.resetter.ClearSession(ctx)
	if resetErr != nil {
		c.logger.Warn("clear session failed", zap.Error(resetErr))
		var serverErr *backend.ServerError
		if !errors.As(resetErr, &serverErr) {
			return resetErr
		}
	}

	c.mu.Lock()
	c.epoch++
	c.messages = nil
	cancel := c.cancelAsk
	c.cancelAsk = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.uploads != nil {
		c.uploads.Reset()
	}
	c.notify()
	c.logger.Info("session cleared")
	return resetErr
}

func (c *SessionController) Upload(ctx context.Context, files []backend.UploadFile) ([]string, error) {
	return c.uploads.Submit(ctx, files)
}

func (c *SessionController) RemoveFile(ctx context.Context, filename string) error {
	return c.uploads.Remove(ctx, filename)
}

func (c *SessionController) SyncFiles(ctx context.Context) error {
	return c.uploads.Sync(ctx)
}

func (c *SessionController) StartCapture(ctx context.Context) error {
	return c.capture.Start(ctx)
}

// StopCapture finishes the recording and returns the transcript. The
// transcript is not submitted as a question.
func (c *SessionController) StopCapture(ctx context.Context) (string, error) {
	return c.capture.Stop(ctx)
}

// OpenCitation presents the citIdx-th citation of the msgIdx-th message.
func (c *SessionController) OpenCitation(ctx context.Context, msgIdx, citIdx int) error {
	c.mu.Lock()
	if msgIdx < 0 || msgIdx >= len(c.messages) {
		c.mu.Unlock()
		return ErrCitationNotFound
	}
	msg := c.messages[msgIdx]
	if citIdx < 0 || citIdx >= len(msg.Citations) {
		c.mu.Unlock()
		return ErrCitationNotFound
	}
	citation := msg.Citations[citIdx]
	c.mu.Unlock()

	return c.citations.Dispatch(ctx, citation)
}

func (c *SessionController) Snapshot() Snapshot {
	c.mu.Lock()
	messages := make([]model.Message, len(c.messages))
	for i, m := range c.messages {
		messages[i] = m.Clone()
	}
	c.mu.Unlock()

	snap := Snapshot{Messages: messages, Capture: model.CaptureIdle}
	if c.uploads != nil {
		snap.Uploads = c.uploads.Entries()
	}
	if c.capture != nil {
		snap.Capture = c.capture.State()
	}
	return snap
}

// Subscribe registers fn and returns a function that removes it.
func (c *SessionController) Subscribe(fn Observer) func() {
	c.obsMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

// notify takes the snapshot and delivers it under notifyMu so observers
// see snapshots in the order they were taken.
func (c *SessionController) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.obsMu.Lock()
	if len(c.observers) == 0 {
		c.obsMu.Unlock()
		return
	}
	observers := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.obsMu.Unlock()

	snap := c.Snapshot()
	for _, fn := range observers {
		fn(snap)
	}
}
