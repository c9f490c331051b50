package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"vaultai/internal/app"
	"vaultai/internal/model"
)

// Renderer writes session state to the terminal.
type Renderer struct {
	mu  sync.Mutex
	out io.Writer

	user    *color.Color
	system  *color.Color
	cite    *color.Color
	pending *color.Color
	alert   *color.Color
	info    *color.Color

	// flattened answer text already printed for message printedID
	printedID string
	printed   string
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{
		out:     out,
		user:    color.New(color.FgCyan, color.Bold),
		system:  color.New(color.FgGreen, color.Bold),
		cite:    color.New(color.FgYellow),
		pending: color.New(color.FgHiBlack),
		alert:   color.New(color.FgRed),
		info:    color.New(color.FgCyan),
	}
}

func (r *Renderer) Question(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user.Fprint(r.out, "you ▸ ")
	fmt.Fprintln(r.out, text)
}

// Stream prints the new part of a streaming answer, one completed line at
// a time. When the flattened text no longer extends what was printed, the
// final update is written in full.
func (r *Renderer) Stream(m model.Message, msgIdx int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	text := FlattenHTML(m.Content)
	if r.printedID != m.ID {
		r.printedID = m.ID
		r.printed = ""
		r.system.Fprint(r.out, "vault ▸ ")
	}

	if m.Streaming {
		// The last line may still be rewritten by markup that has not
		// arrived.
		cut := strings.LastIndexByte(text, '\n')
		if cut < 0 {
			return
		}
		ready := text[:cut+1]
		if len(ready) > len(r.printed) && strings.HasPrefix(ready, r.printed) {
			fmt.Fprint(r.out, ready[len(r.printed):])
			r.printed = ready
		}
		return
	}

	if strings.HasPrefix(text, r.printed) {
		fmt.Fprintln(r.out, text[len(r.printed):])
	} else {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, text)
	}
	r.printed = text
	r.citationsLocked(m, msgIdx)
}

// Message prints a complete log entry.
func (r *Renderer) Message(m model.Message, msgIdx int) {
	if m.Sender == model.SenderUser {
		r.Question(m.Content)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.system.Fprint(r.out, "vault ▸ ")
	fmt.Fprintln(r.out, FlattenHTML(m.Content))
	r.citationsLocked(m, msgIdx)
}

func (r *Renderer) citationsLocked(m model.Message, msgIdx int) {
	for i, c := range m.Citations {
		r.cite.Fprintf(r.out, "  [%d.%d] ", msgIdx, i+1)
		fmt.Fprintf(r.out, "%s  %s", c.SourceID, CitationLabel(c))
		if c.Inline && c.Kind == model.KindImage {
			r.pending.Fprint(r.out, "  (image)")
		}
		fmt.Fprintln(r.out)
	}
}

func (r *Renderer) Files(entries []model.UploadEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(entries) == 0 {
		r.pending.Fprintln(r.out, "no files uploaded")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(r.out, "%s %s", fileIcon(e.Filename), e.Filename)
		if e.Pending() {
			r.pending.Fprint(r.out, "  (uploading)")
		}
		fmt.Fprintln(r.out)
	}
}

func (r *Renderer) Capture(state model.CaptureState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch state {
	case model.CaptureRecording:
		r.alert.Fprintln(r.out, "● recording (type /stop to finish)")
	case model.CaptureFinalizing:
		r.pending.Fprintln(r.out, "transcribing...")
	default:
		r.pending.Fprintln(r.out, "microphone idle")
	}
}

func (r *Renderer) Alert(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alert.Fprintln(r.out, app.AlertMessage(err))
}

func (r *Renderer) Info(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info.Fprintf(r.out, format+"\n", args...)
}
