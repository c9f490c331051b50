package app

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"vaultai/internal/model"
)

const (
	NoExcerptText         = "no text content available for this source"
	DefaultAudioLoadDelay = 100 * time.Millisecond
)

// Presenter shows citation targets to the user.
type Presenter interface {
	OpenDocument(sourceID string, page int)
	ShowExcerpt(title, text string)
	OpenImage(imagePath string)
}

// AudioPlayer is the single shared playback surface.
type AudioPlayer interface {
	CurrentSource() string
	// Load switches the player to sourceID. The returned channel is closed
	// once the source can be seeked; nil means the player cannot tell and a
	// fixed delay is used instead.
	Load(sourceID string) <-chan struct{}
	Seek(seconds float64)
	Play()
}

type CitationRouter struct {
	presenter Presenter
	audio     AudioPlayer
	loadDelay time.Duration
	logger    *zap.Logger
}

func NewCitationRouter(presenter Presenter, audio AudioPlayer, loadDelay time.Duration, logger *zap.Logger) *CitationRouter {
	if loadDelay <= 0 {
		loadDelay = DefaultAudioLoadDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CitationRouter{
		presenter: presenter,
		audio:     audio,
		loadDelay: loadDelay,
		logger:    logger,
	}
}

// Dispatch carries out the presentation action for one citation kind.
// Unknown kinds are ignored.
func (r *CitationRouter) Dispatch(ctx context.Context, c model.Citation) error {
	switch c.Kind {
	case model.KindDocumentPage:
		r.presenter.OpenDocument(c.SourceID, c.Page())
	case model.KindTextChunk:
		text := c.TextExcerpt
		if strings.TrimSpace(text) == "" {
			text = NoExcerptText
		}
		r.presenter.ShowExcerpt("Source from: "+c.SourceID, text)
	case model.KindAudioSegment:
		return r.playSegment(ctx, c)
	case model.KindImage:
		path := c.ImagePath
		if path == "" {
			path = c.SourceID
		}
		r.presenter.OpenImage(path)
	default:
		r.logger.Debug("ignoring citation of unknown kind",
			zap.String("kind", string(c.Kind)),
			zap.String("source", c.SourceID),
		)
	}
	return nil
}

func (r *CitationRouter) playSegment(ctx context.Context, c model.Citation) error {
	if r.audio == nil {
		return nil
	}

	// Already loaded: jump without reloading or restarting playback.
	if r.audio.CurrentSource() == c.SourceID {
		r.audio.Seek(c.Start())
		return nil
	}

	ready := r.audio.Load(c.SourceID)
	if ready == nil {
		timer := time.NewTimer(r.loadDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	} else {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ready:
		}
	}

	r.audio.Seek(c.Start())
	r.audio.Play()
	return nil
}
