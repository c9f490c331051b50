package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultai/internal/model"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestCitationRouterDocumentPage(t *testing.T) {
	presenter := &fakePresenter{}
	router := NewCitationRouter(presenter, &fakePlayer{}, time.Millisecond, nil)

	err := router.Dispatch(context.Background(), model.Citation{
		Kind:             model.KindDocumentPage,
		SourceID:         "report.pdf",
		PageOrChunkIndex: intPtr(4),
	})

	require.NoError(t, err)
	assert.Equal(t, []presenterCall{{op: "document", arg: "report.pdf", page: 4}}, presenter.Calls())
}

func TestCitationRouterTextChunk(t *testing.T) {
	presenter := &fakePresenter{}
	router := NewCitationRouter(presenter, nil, 0, nil)

	require.NoError(t, router.Dispatch(context.Background(), model.Citation{
		Kind:        model.KindTextChunk,
		SourceID:    "notes.docx",
		TextExcerpt: "quarterly figures",
	}))
	require.NoError(t, router.Dispatch(context.Background(), model.Citation{
		Kind:     model.KindTextChunk,
		SourceID: "empty.txt",
	}))

	assert.Equal(t, []presenterCall{
		{op: "excerpt", title: "Source from: notes.docx", arg: "quarterly figures"},
		{op: "excerpt", title: "Source from: empty.txt", arg: NoExcerptText},
	}, presenter.Calls())
}

func TestCitationRouterImage(t *testing.T) {
	presenter := &fakePresenter{}
	router := NewCitationRouter(presenter, nil, 0, nil)

	require.NoError(t, router.Dispatch(context.Background(), model.Citation{
		Kind:      model.KindImage,
		SourceID:  "deck.pdf",
		ImagePath: "deck_page3_img1.png",
	}))
	require.NoError(t, router.Dispatch(context.Background(), model.Citation{
		Kind:       model.KindImage,
		SourceID:   "chart.png",
		Standalone: true,
	}))

	assert.Equal(t, []presenterCall{
		{op: "image", arg: "deck_page3_img1.png"},
		{op: "image", arg: "chart.png"},
	}, presenter.Calls())
}

func TestCitationRouterUnknownKindIsNoop(t *testing.T) {
	presenter := &fakePresenter{}
	player := &fakePlayer{}
	router := NewCitationRouter(presenter, player, 0, nil)

	err := router.Dispatch(context.Background(), model.Citation{Kind: "video", SourceID: "clip.mp4"})

	require.NoError(t, err)
	assert.Empty(t, presenter.Calls())
	assert.Empty(t, player.Ops())
}

func TestCitationRouterAudioLoadsThenSeeks(t *testing.T) {
	player := &fakePlayer{}
	router := NewCitationRouter(&fakePresenter{}, player, time.Millisecond, nil)

	err := router.Dispatch(context.Background(), model.Citation{
		Kind:      model.KindAudioSegment,
		SourceID:  "call.mp3",
		StartTime: floatPtr(42.5),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"load:call.mp3", "seek", "play"}, player.Ops())
	assert.Equal(t, []float64{42.5}, player.seeks)
}

func TestCitationRouterAudioSameSourceOnlySeeks(t *testing.T) {
	player := &fakePlayer{current: "call.mp3"}
	router := NewCitationRouter(&fakePresenter{}, player, time.Millisecond, nil)

	err := router.Dispatch(context.Background(), model.Citation{
		Kind:      model.KindAudioSegment,
		SourceID:  "call.mp3",
		StartTime: floatPtr(7),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"seek"}, player.Ops())
}

func TestCitationRouterAudioWaitsForReadiness(t *testing.T) {
	ready := make(chan struct{})
	player := &fakePlayer{ready: ready}
	router := NewCitationRouter(&fakePresenter{}, player, time.Hour, nil)

	done := make(chan error, 1)
	go func() {
		done <- router.Dispatch(context.Background(), model.Citation{
			Kind:     model.KindAudioSegment,
			SourceID: "call.mp3",
		})
	}()

	assert.Eventually(t, func() bool { return len(player.Ops()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"load:call.mp3"}, player.Ops())

	close(ready)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"load:call.mp3", "seek", "play"}, player.Ops())
}

func TestCitationRouterAudioCanceled(t *testing.T) {
	player := &fakePlayer{}
	router := NewCitationRouter(&fakePresenter{}, player, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := router.Dispatch(ctx, model.Citation{Kind: model.KindAudioSegment, SourceID: "call.mp3"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"load:call.mp3"}, player.Ops())
}
