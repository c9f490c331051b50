package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"vaultai/internal/backend"
)

type presenterCall struct {
	op    string
	arg   string
	page  int
	title string
}

type fakePresenter struct {
	mu    sync.Mutex
	calls []presenterCall
}

func (p *fakePresenter) OpenDocument(sourceID string, page int) {
	p.record(presenterCall{op: "document", arg: sourceID, page: page})
}

func (p *fakePresenter) ShowExcerpt(title, text string) {
	p.record(presenterCall{op: "excerpt", arg: text, title: title})
}

func (p *fakePresenter) OpenImage(imagePath string) {
	p.record(presenterCall{op: "image", arg: imagePath})
}

func (p *fakePresenter) record(c presenterCall) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
}

func (p *fakePresenter) Calls() []presenterCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]presenterCall(nil), p.calls...)
}

type fakePlayer struct {
	mu      sync.Mutex
	current string
	ready   chan struct{}
	ops     []string
	seeks   []float64
}

func (p *fakePlayer) CurrentSource() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakePlayer) Load(sourceID string) <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = sourceID
	p.ops = append(p.ops, "load:"+sourceID)
	if p.ready == nil {
		return nil
	}
	return p.ready
}

func (p *fakePlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, "seek")
	p.seeks = append(p.seeks, seconds)
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = append(p.ops, "play")
}

func (p *fakePlayer) Ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

// fakeTransport answers uploads by echoing the names in accept, or every
// submitted name when accept is nil. A non-nil gate blocks Upload until it
// is closed.
type fakeTransport struct {
	mu        sync.Mutex
	accept    []string
	uploadErr error
	deleteErr error
	listed    []string
	gate      chan struct{}
	entered   chan struct{}
	deleted   []string
}

func (f *fakeTransport) Upload(ctx context.Context, files []backend.UploadFile) ([]string, error) {
	f.mu.Lock()
	gate, entered, accept, err := f.gate, f.entered, f.accept, f.uploadErr
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if accept != nil {
		return accept, nil
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return names, nil
}

func (f *fakeTransport) Delete(_ context.Context, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, filename)
	return nil
}

func (f *fakeTransport) ListFiles(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listed, nil
}

type fakeRecorder struct {
	mu        sync.Mutex
	chunks    [][]byte
	onChunk   func([]byte)
	startErr  error
	finalErr  error
	released  int
	finalized int
}

func (r *fakeRecorder) Start(onChunk func([]byte)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.onChunk = onChunk
	return nil
}

// Finalize flushes the queued chunks through onChunk before returning.
func (r *fakeRecorder) Finalize(context.Context) error {
	r.mu.Lock()
	chunks, onChunk, err := r.chunks, r.onChunk, r.finalErr
	r.finalized++
	r.mu.Unlock()
	if err != nil {
		return err
	}
	for _, c := range chunks {
		onChunk(c)
	}
	return nil
}

func (r *fakeRecorder) Release() error {
	r.mu.Lock()
	r.released++
	r.mu.Unlock()
	return nil
}

type fakeDevice struct {
	recorder *fakeRecorder
	err      error
	gate     chan struct{}
	entered  chan struct{}
}

func (d *fakeDevice) RequestAccess(ctx context.Context) (Recorder, error) {
	if d.entered != nil {
		d.entered <- struct{}{}
	}
	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.recorder, nil
}

type fakeTranscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	text     string
	err      error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, audio)
	return f.text, f.err
}

// fakeAnswers streams the configured fragments. When hold is set the
// stream blocks after the fragments until the request context ends.
type fakeAnswers struct {
	fragments []string
	openErr   error
	hold      bool
	opened    chan struct{}
}

func (f *fakeAnswers) OpenAnswerStream(ctx context.Context, _ string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	if f.opened != nil {
		close(f.opened)
	}
	return &fragmentStream{ctx: ctx, fragments: append([]string(nil), f.fragments...), hold: f.hold}, nil
}

type fragmentStream struct {
	ctx       context.Context
	fragments []string
	hold      bool
}

func (s *fragmentStream) Read(p []byte) (int, error) {
	if len(s.fragments) > 0 {
		n := copy(p, s.fragments[0])
		s.fragments[0] = s.fragments[0][n:]
		if s.fragments[0] == "" {
			s.fragments = s.fragments[1:]
		}
		return n, nil
	}
	if s.hold {
		<-s.ctx.Done()
		return 0, s.ctx.Err()
	}
	return 0, io.EOF
}

func (s *fragmentStream) Close() error { return nil }

type fakeResetter struct {
	err   error
	calls int
}

func (f *fakeResetter) ClearSession(context.Context) error {
	f.calls++
	return f.err
}

func uploadFiles(names ...string) []backend.UploadFile {
	files := make([]backend.UploadFile, 0, len(names))
	for _, n := range names {
		files = append(files, backend.UploadFile{Name: n, Content: strings.NewReader("content of " + n)})
	}
	return files
}

var errBoom = errors.New("boom")
