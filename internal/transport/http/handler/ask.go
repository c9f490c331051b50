package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vaultai/internal/ai"
	"vaultai/internal/corpus"
	"vaultai/internal/model"
	"vaultai/internal/transport/http/response"
)

const answerSystemPrompt = "You answer questions about the user's uploaded documents using only the numbered context blocks. " +
	"Reply with a single HTML fragment inside one <div>, using <p>, <ul>, <li>, <strong> and <em> only. " +
	"Mention the file and location you rely on. Do not use Markdown or code fences. " +
	"If the context does not answer the question, say so briefly."

// Completer streams a model written answer.
type Completer interface {
	StreamComplete(ctx context.Context, messages []ai.ChatMessage, onChunk func(chunk string) error) (string, error)
}

type AskHandler struct {
	corpus       *corpus.Service
	completer    Completer
	delay        time.Duration
	fragmentSize int
	logger       *zap.Logger
}

type AskRequest struct {
	Question string `json:"question"`
}

// sourcesEnvelope keeps "type" as the first key; clients hold back text
// that could be the start of this object.
type sourcesEnvelope struct {
	Type    string               `json:"type"`
	Content []model.SourceObject `json:"content"`
}

// NewAskHandler builds the /ask handler. A nil completer keeps the
// extractive answer.
func NewAskHandler(svc *corpus.Service, completer Completer, delay time.Duration, fragmentSize int, logger *zap.Logger) *AskHandler {
	if fragmentSize <= 0 {
		fragmentSize = 24
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AskHandler{corpus: svc, completer: completer, delay: delay, fragmentSize: fragmentSize, logger: logger}
}

// Ask streams the fenced HTML answer followed by exactly one sources
// envelope, with empty content when nothing relevant was found.
func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	answer, err := h.corpus.Ask(c.Request.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, corpus.ErrNoDocuments):
			response.Error(c, http.StatusBadRequest, "No documents uploaded yet")
		case errors.Is(err, corpus.ErrEmptyQuestion):
			response.Error(c, http.StatusBadRequest, "No question provided")
		default:
			response.Error(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	if h.completer != nil && answer.Context != "" {
		if !h.streamCompletion(c, answer) {
			return
		}
	} else if !h.streamFragments(ctx, c, "```html\n"+answer.HTML+"\n```") {
		return
	}

	sources := answer.Sources
	if sources == nil {
		sources = []model.SourceObject{}
	}
	payload, err := json.Marshal(sourcesEnvelope{Type: "sources", Content: sources})
	if err != nil {
		h.logger.Error("marshal sources failed", zap.Error(err))
		return
	}
	_, _ = c.Writer.Write(payload)
	c.Writer.Flush()
}

// streamCompletion forwards model deltas as they arrive. When the model
// fails before producing anything the extractive answer is sent instead.
func (h *AskHandler) streamCompletion(c *gin.Context, answer *corpus.Answer) bool {
	ctx := c.Request.Context()
	messages := []ai.ChatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: "Context:\n" + answer.Context + "\n\nQuestion: " + answer.Question},
	}

	opened := false
	_, err := h.completer.StreamComplete(ctx, messages, func(chunk string) error {
		if !opened {
			if _, err := c.Writer.WriteString("```html\n"); err != nil {
				return err
			}
			opened = true
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		h.logger.Warn("llm answer failed", zap.Error(err), zap.Bool("partial", opened))
	}
	if !opened {
		return h.streamFragments(ctx, c, "```html\n"+answer.HTML+"\n```")
	}
	if _, err := c.Writer.WriteString("\n```"); err != nil {
		return false
	}
	c.Writer.Flush()
	return true
}

// streamFragments writes body in small pieces with the configured delay.
func (h *AskHandler) streamFragments(ctx context.Context, c *gin.Context, body string) bool {
	for _, fragment := range splitFragments(body, h.fragmentSize) {
		if h.delay > 0 {
			timer := time.NewTimer(h.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return false
			case <-timer.C:
			}
		}
		if _, err := c.Writer.WriteString(fragment); err != nil {
			h.logger.Debug("answer stream aborted", zap.Error(err))
			return false
		}
		c.Writer.Flush()
	}
	return true
}

// splitFragments cuts s into pieces of about size bytes without splitting
// a rune.
func splitFragments(s string, size int) []string {
	var out []string
	for len(s) > 0 {
		n := size
		if n >= len(s) {
			out = append(out, s)
			break
		}
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		if n == 0 {
			_, n = utf8.DecodeRuneInString(s)
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}
