package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"vaultai/internal/app"
	"vaultai/internal/backend"
	"vaultai/internal/bootstrap"
	"vaultai/internal/model"
)

const helpText = `Type a question and press Enter.

  /upload <path>...   upload files
  /rm <file>          remove an uploaded file
  /files              list uploaded files
  /open <m.n>         open citation n of answer m
  /record             start recording a spoken question
  /stop               stop recording and transcribe
  /clear              clear the session
  /help               show this help
  /quit               leave`

type repl struct {
	client *bootstrap.ClientApp
	in     io.Reader
	out    io.Writer

	// set by /stop; an empty line asks it
	transcript string
}

func newREPL(client *bootstrap.ClientApp, in io.Reader, out io.Writer) *repl {
	return &repl{client: client, in: in, out: out}
}

func (r *repl) Run(ctx context.Context) error {
	if err := r.client.Session.SyncFiles(ctx); err != nil {
		r.client.Renderer.Alert(err)
	}
	fmt.Fprintf(r.out, "vaultai connected to %s\n", r.client.Config.Backend.BaseURL)
	fmt.Fprintln(r.out, "Type a question and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Fprintln(r.out)

	scanner := bufio.NewScanner(r.in)
	lines := make(chan string)
	errCh := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errCh <- err
			return
		}
		errCh <- io.EOF
	}()

	for {
		fmt.Fprint(r.out, r.prompt())

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case line = <-lines:
		}

		if quit := r.handle(ctx, strings.TrimSpace(line)); quit {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}
	}
}

func (r *repl) prompt() string {
	switch r.client.Capture.State() {
	case model.CaptureRecording:
		return "[rec]> "
	case model.CaptureFinalizing:
		return "[...]> "
	}
	return "> "
}

// handle runs one input line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	if line == "" {
		if r.transcript == "" {
			return false
		}
		line, r.transcript = r.transcript, ""
	}
	if !strings.HasPrefix(line, "/") {
		if err := r.ask(ctx, line); err != nil && !answered(err) {
			r.client.Renderer.Alert(err)
		}
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	session := r.client.Session
	var err error

	switch cmd {
	case "/quit", "/exit", "/q":
		return true
	case "/help":
		fmt.Fprintln(r.out, helpText)
	case "/upload":
		err = r.upload(ctx, strings.Fields(arg))
	case "/rm":
		if arg == "" {
			err = errors.New("usage: /rm <file>")
			break
		}
		if err = session.RemoveFile(ctx, arg); err == nil {
			r.client.Renderer.Info("removed %s", arg)
		}
	case "/files":
		if err = session.SyncFiles(ctx); err == nil {
			r.client.Renderer.Files(session.Snapshot().Uploads)
		}
	case "/open":
		err = r.open(ctx, arg)
	case "/record":
		if err = session.StartCapture(ctx); err == nil {
			r.client.Renderer.Capture(model.CaptureRecording)
		}
	case "/stop":
		r.client.Renderer.Capture(model.CaptureFinalizing)
		var text string
		if text, err = session.StopCapture(ctx); err == nil {
			r.transcript = text
			r.client.Renderer.Info("transcribed: %q (press Enter to ask it)", text)
		}
	case "/clear":
		err = session.Clear(ctx)
		var serverErr *backend.ServerError
		if err == nil || errors.As(err, &serverErr) {
			r.transcript = ""
		}
		if err == nil {
			r.client.Renderer.Info("session cleared")
		}
	default:
		err = fmt.Errorf("unknown command %s, try /help", cmd)
	}

	r.client.Renderer.Alert(err)
	return false
}

// ask streams one answer to the terminal.
func (r *repl) ask(ctx context.Context, question string) error {
	session := r.client.Session
	renderer := r.client.Renderer

	var answerID string
	unsubscribe := session.Subscribe(func(s app.Snapshot) {
		if len(s.Messages) == 0 {
			return
		}
		idx := len(s.Messages) - 1
		last := s.Messages[idx]
		if last.Sender != model.SenderSystem {
			return
		}
		if answerID == "" {
			answerID = last.ID
		}
		if last.ID == answerID {
			renderer.Stream(last, idx)
		}
	})
	defer unsubscribe()

	if err := session.Ask(ctx, question); err != nil {
		return err
	}
	return nil
}

// answered reports whether err was already shown as the answer text.
func answered(err error) bool {
	return !errors.Is(err, app.ErrQuestionEmpty) && !errors.Is(err, app.ErrQuestionInFlight)
}

func (r *repl) upload(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return errors.New("usage: /upload <path>...")
	}
	files, closeAll, err := openUploads(paths)
	if err != nil {
		return err
	}
	defer closeAll()

	accepted, err := r.client.Session.Upload(ctx, files)
	if err != nil {
		return err
	}
	r.client.Renderer.Info("uploaded %d of %d file(s)", len(accepted), len(files))
	return nil
}

// open parses "m.n" as answer m, citation n (both as printed).
func (r *repl) open(ctx context.Context, ref string) error {
	msgPart, citPart, ok := strings.Cut(ref, ".")
	if !ok {
		return errors.New("usage: /open <answer>.<citation>, e.g. /open 1.2")
	}
	msgIdx, err := strconv.Atoi(msgPart)
	if err != nil {
		return fmt.Errorf("bad answer number %q", msgPart)
	}
	citIdx, err := strconv.Atoi(citPart)
	if err != nil {
		return fmt.Errorf("bad citation number %q", citPart)
	}
	return r.client.Session.OpenCitation(ctx, msgIdx, citIdx-1)
}
