package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultai/internal/backend"
	"vaultai/internal/model"
)

type sessionFixture struct {
	controller *SessionController
	answers    *fakeAnswers
	resetter   *fakeResetter
	transport  *fakeTransport
	presenter  *fakePresenter
	player     *fakePlayer
	recorder   *fakeRecorder
}

func newSessionFixture(answers *fakeAnswers) *sessionFixture {
	f := &sessionFixture{
		answers:   answers,
		resetter:  &fakeResetter{},
		transport: &fakeTransport{},
		presenter: &fakePresenter{},
		player:    &fakePlayer{},
		recorder:  &fakeRecorder{chunks: [][]byte{[]byte("wav")}},
	}
	f.controller = NewSessionController(
		answers,
		f.resetter,
		NewUploadRegistry(f.transport, nil),
		NewCaptureController(&fakeDevice{recorder: f.recorder}, &fakeTranscriber{text: "spoken question"}, nil),
		NewCitationRouter(f.presenter, f.player, time.Millisecond, nil),
		nil,
	)
	return f
}

func TestSessionControllerAsk(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{fragments: []string{
		"```html\n<p>Revenue ",
		"grew.</p>\n```",
		`{"type":"sources","content":[{"source_filename":"r.pdf","page_num":3,"type":"pdf"}]}`,
	}})

	require.NoError(t, f.controller.Ask(context.Background(), "  how did revenue do?  "))

	snap := f.controller.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.SenderUser, snap.Messages[0].Sender)
	assert.Equal(t, "how did revenue do?", snap.Messages[0].Content)

	answer := snap.Messages[1]
	assert.Equal(t, model.SenderSystem, answer.Sender)
	assert.Equal(t, "<p>Revenue grew.</p>", answer.Content)
	assert.False(t, answer.Streaming)
	require.Len(t, answer.Citations, 1)
	assert.Equal(t, "r.pdf", answer.Citations[0].SourceID)
}

func TestSessionControllerAskEmptyQuestion(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{})

	assert.ErrorIs(t, f.controller.Ask(context.Background(), " \n\t"), ErrQuestionEmpty)
	assert.Empty(t, f.controller.Snapshot().Messages)
}

func TestSessionControllerAskOpenFailure(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{openErr: &backend.ServerError{StatusCode: 400, Message: "No documents uploaded"}})

	err := f.controller.Ask(context.Background(), "anything?")

	var serverErr *backend.ServerError
	require.ErrorAs(t, err, &serverErr)
	snap := f.controller.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "Error: No documents uploaded", snap.Messages[1].Content)
	assert.False(t, snap.Messages[1].Streaming)
}

func TestSessionControllerUpdatesStreamInOrder(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{fragments: []string{"a", "b", "c"}})

	var mu sync.Mutex
	var texts []string
	unsubscribe := f.controller.Subscribe(func(s Snapshot) {
		if len(s.Messages) == 2 {
			mu.Lock()
			texts = append(texts, s.Messages[1].Content)
			mu.Unlock()
		}
	})
	defer unsubscribe()

	require.NoError(t, f.controller.Ask(context.Background(), "letters?"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"", "a", "ab", "abc", "abc"}, texts)
}

func TestSessionControllerSingleFlight(t *testing.T) {
	opened := make(chan struct{})
	f := newSessionFixture(&fakeAnswers{fragments: []string{"thinking"}, hold: true, opened: opened})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.controller.Ask(ctx, "first") }()
	<-opened

	assert.ErrorIs(t, f.controller.Ask(context.Background(), "second"), ErrQuestionInFlight)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Len(t, f.controller.Snapshot().Messages, 2)
}

func TestSessionControllerClearAbandonsInFlightAnswer(t *testing.T) {
	opened := make(chan struct{})
	f := newSessionFixture(&fakeAnswers{fragments: []string{"partial"}, hold: true, opened: opened})

	done := make(chan error, 1)
	go func() { done <- f.controller.Ask(context.Background(), "slow question") }()
	<-opened

	require.NoError(t, f.controller.Clear(context.Background()))
	<-done

	assert.Empty(t, f.controller.Snapshot().Messages)
	assert.Equal(t, 1, f.resetter.calls)

	// The controller accepts questions again once the old one is gone.
	f.answers.hold = false
	f.answers.opened = nil
	require.NoError(t, f.controller.Ask(context.Background(), "next"))
	assert.Len(t, f.controller.Snapshot().Messages, 2)
}

func TestSessionControllerClearTransportFailureKeepsState(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{fragments: []string{"answer"}})
	require.NoError(t, f.controller.Ask(context.Background(), "q"))
	_, err := f.controller.Upload(context.Background(), uploadFiles("a.pdf"))
	require.NoError(t, err)

	f.resetter.err = &backend.TransportError{Op: "clear session", Err: errBoom}
	err = f.controller.Clear(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, err, backend.ErrTransport)

	snap := f.controller.Snapshot()
	assert.Len(t, snap.Messages, 2)
	assert.Len(t, snap.Uploads, 1)
}

func TestSessionControllerClearServerErrorStillResets(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{fragments: []string{"answer"}})
	require.NoError(t, f.controller.Ask(context.Background(), "q"))
	_, err := f.controller.Upload(context.Background(), uploadFiles("a.pdf"))
	require.NoError(t, err)

	f.resetter.err = &backend.ServerError{StatusCode: 500, Message: "reset failed"}
	err = f.controller.Clear(context.Background())

	var serverErr *backend.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, "reset failed", serverErr.Message)

	snap := f.controller.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Empty(t, snap.Uploads)
}

func TestSessionControllerClearDropsUploads(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{})
	_, err := f.controller.Upload(context.Background(), uploadFiles("a.pdf", "b.pdf"))
	require.NoError(t, err)

	require.NoError(t, f.controller.Clear(context.Background()))
	assert.Empty(t, f.controller.Snapshot().Uploads)
}

func TestSessionControllerOpenCitation(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{fragments: []string{
		`Answer {"type":"sources","content":[{"source_filename":"call.mp3","type":"audio","start_time":3}]}`,
	}})
	require.NoError(t, f.controller.Ask(context.Background(), "what was said?"))

	require.NoError(t, f.controller.OpenCitation(context.Background(), 1, 0))
	assert.Equal(t, []string{"load:call.mp3", "seek", "play"}, f.player.Ops())

	assert.ErrorIs(t, f.controller.OpenCitation(context.Background(), 1, 5), ErrCitationNotFound)
	assert.ErrorIs(t, f.controller.OpenCitation(context.Background(), 0, 0), ErrCitationNotFound)
	assert.ErrorIs(t, f.controller.OpenCitation(context.Background(), 9, 0), ErrCitationNotFound)
}

func TestSessionControllerCaptureIsNotAutoSubmitted(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{})

	var states []model.CaptureState
	unsubscribe := f.controller.Subscribe(func(s Snapshot) { states = append(states, s.Capture) })
	defer unsubscribe()

	require.NoError(t, f.controller.StartCapture(context.Background()))
	text, err := f.controller.StopCapture(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "spoken question", text)
	assert.Empty(t, f.controller.Snapshot().Messages)
	assert.Equal(t, []model.CaptureState{model.CaptureRecording, model.CaptureFinalizing, model.CaptureIdle}, states)
}

func TestSessionControllerSnapshotIsACopy(t *testing.T) {
	f := newSessionFixture(&fakeAnswers{fragments: []string{
		`x {"type":"sources","content":[{"source_filename":"a.txt","type":"text"}]}`,
	}})
	require.NoError(t, f.controller.Ask(context.Background(), "q"))

	snap := f.controller.Snapshot()
	snap.Messages[1].Citations[0].SourceID = "mutated"
	snap.Messages[0].Content = "mutated"

	again := f.controller.Snapshot()
	assert.Equal(t, "a.txt", again.Messages[1].Citations[0].SourceID)
	assert.Equal(t, "q", again.Messages[0].Content)
}
