package app

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"vaultai/internal/model"
	"vaultai/internal/pkg/envelope"
)

const (
	NoAnswerText  = "no answer found in the documents"
	readChunkSize = 4 << 10
)

// fenceMarkers are transport-only wrappers the backend may put around the
// prose. Longer markers must come first.
var fenceMarkers = []string{"```html", "```"}

// StreamUpdate is one render step of an answer.
type StreamUpdate struct {
	Text      string
	Citations []model.Citation
	Streaming bool
	Err       error
}

// StreamAssembler turns the fragments of one answer stream into render
// updates. It is single-use: once a terminal update has been produced every
// further call returns that update and reports no change.
type StreamAssembler struct {
	buf       []byte
	carry     []byte
	citations []model.Citation
	last      StreamUpdate
	done      bool
	logger    *zap.Logger
}

func NewStreamAssembler(logger *zap.Logger) *StreamAssembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamAssembler{logger: logger}
}

// Push appends one fragment and returns the resulting streaming update.
// The boolean is false when the assembler has already finished.
func (a *StreamAssembler) Push(fragment []byte) (StreamUpdate, bool) {
	if a.done {
		return a.last, false
	}

	data := fragment
	if len(a.carry) > 0 {
		data = make([]byte, 0, len(a.carry)+len(fragment))
		data = append(append(data, a.carry...), fragment...)
	}
	cut := incompleteSuffix(data)
	a.buf = append(a.buf, data[:len(data)-cut]...)
	a.carry = append([]byte(nil), data[len(data)-cut:]...)

	a.extractEnvelope()

	// A half-arrived envelope stays out of the visible text until it either
	// parses or the stream ends. So does a half-arrived fence marker.
	visible := a.buf[:envelope.PendingStart(a.buf)]
	visible = visible[:len(visible)-partialFence(visible)]
	a.last = StreamUpdate{
		Text:      stripWrappers(visible),
		Citations: cloneCitations(a.citations),
		Streaming: true,
	}
	return a.last, true
}

// Finish handles end-of-stream. Anything still held back is ordinary text.
func (a *StreamAssembler) Finish() (StreamUpdate, bool) {
	if a.done {
		return a.last, false
	}
	a.buf = append(a.buf, a.carry...)
	a.carry = nil
	a.extractEnvelope()

	text := stripWrappers(a.buf)
	if text == "" {
		text = NoAnswerText
	}
	a.done = true
	a.last = StreamUpdate{
		Text:      text,
		Citations: cloneCitations(a.citations),
		Streaming: false,
	}
	return a.last, true
}

// Fail handles a transport failure with a single terminal error update.
func (a *StreamAssembler) Fail(err error) (StreamUpdate, bool) {
	if a.done {
		return a.last, false
	}
	a.done = true
	a.last = StreamUpdate{
		Text:      AlertMessage(err),
		Streaming: false,
		Err:       err,
	}
	return a.last, true
}

// Run reads stream until it ends or fails, calling emit for every update in
// arrival order, and returns the terminal update. It does not close stream.
func (a *StreamAssembler) Run(ctx context.Context, stream io.Reader, emit func(StreamUpdate)) StreamUpdate {
	chunk := make([]byte, readChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return emitChanged(emit)(a.Fail(err))
		}

		n, err := stream.Read(chunk)
		if n > 0 {
			emitChanged(emit)(a.Push(chunk[:n]))
		}
		switch {
		case err == io.EOF:
			return emitChanged(emit)(a.Finish())
		case err != nil:
			a.logger.Warn("answer stream failed", zap.Error(err))
			return emitChanged(emit)(a.Fail(err))
		}
	}
}

func emitChanged(emit func(StreamUpdate)) func(StreamUpdate, bool) StreamUpdate {
	return func(update StreamUpdate, changed bool) StreamUpdate {
		if changed && emit != nil {
			emit(update)
		}
		return update
	}
}

// extractEnvelope cuts a detected envelope out of the buffer. Elements
// that do not decode as citations are dropped one by one.
func (a *StreamAssembler) extractEnvelope() {
	m, ok := envelope.Detect(a.buf)
	if !ok {
		return
	}

	citations := []model.Citation{}
	var elements []json.RawMessage
	if len(m.Content) > 0 && string(m.Content) != "null" {
		if err := json.Unmarshal(m.Content, &elements); err != nil {
			a.logger.Debug("sources envelope content is not a list", zap.Error(err))
		}
	}
	for i, raw := range elements {
		var c model.Citation
		if err := json.Unmarshal(raw, &c); err != nil {
			a.logger.Debug("skip undecodable citation", zap.Int("index", i), zap.Error(err))
			continue
		}
		citations = append(citations, c)
	}

	a.citations = citations
	rest := a.buf[m.End:]
	a.buf = append(a.buf[:m.Start], rest...)
}

func stripWrappers(b []byte) string {
	s := string(b)
	for _, marker := range fenceMarkers {
		s = strings.ReplaceAll(s, marker, "")
	}
	return strings.TrimSpace(s)
}

// partialFence returns how many trailing bytes of b are a proper prefix of
// a fence marker.
func partialFence(b []byte) int {
	longest := 0
	for _, marker := range fenceMarkers {
		for n := len(marker) - 1; n > longest; n-- {
			if n <= len(b) && string(b[len(b)-n:]) == marker[:n] {
				longest = n
				break
			}
		}
	}
	return longest
}

// incompleteSuffix returns how many trailing bytes of b form the start of a
// UTF-8 sequence that has not fully arrived yet.
func incompleteSuffix(b []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if utf8.FullRune(b[len(b)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}

func cloneCitations(in []model.Citation) []model.Citation {
	if in == nil {
		return nil
	}
	out := make([]model.Citation, len(in))
	copy(out, in)
	return out
}
