package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultai/internal/model"
)

type recordingStore struct {
	ops   []string
	saved []model.CorpusDocument
}

func (s *recordingStore) SaveDocument(_ context.Context, doc model.CorpusDocument) error {
	s.ops = append(s.ops, "save "+doc.Filename)
	s.saved = append(s.saved, doc)
	return nil
}

func (s *recordingStore) DeleteDocument(_ context.Context, filename string) error {
	s.ops = append(s.ops, "delete "+filename)
	return nil
}

func (s *recordingStore) DeleteAll(context.Context) error {
	s.ops = append(s.ops, "reset")
	return nil
}

func encode(t *testing.T, event model.CorpusEvent) []byte {
	t.Helper()
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return b
}

func TestProcessAppliesEvents(t *testing.T) {
	store := &recordingStore{}
	w := NewCorpusPersistWorker(nil, store, "q", nil)
	ctx := context.Background()

	doc := model.CorpusDocument{
		Filename: "a.pdf",
		Hash:     "abc",
		Chunks:   []model.DocumentChunk{{Filename: "a.pdf", Type: model.SourcePDF, PageNum: 1, Content: "page one"}},
	}
	require.NoError(t, w.process(ctx, encode(t, model.CorpusEvent{Op: model.CorpusSave, Filename: "a.pdf", Document: &doc})))
	require.NoError(t, w.process(ctx, encode(t, model.CorpusEvent{Op: model.CorpusDelete, Filename: "a.pdf"})))
	require.NoError(t, w.process(ctx, encode(t, model.CorpusEvent{Op: model.CorpusReset})))

	assert.Equal(t, []string{"save a.pdf", "delete a.pdf", "reset"}, store.ops)
	require.Len(t, store.saved, 1)
	assert.Equal(t, doc, store.saved[0])
}

func TestProcessRejectsBadEvents(t *testing.T) {
	store := &recordingStore{}
	w := NewCorpusPersistWorker(nil, store, "q", nil)
	ctx := context.Background()

	assert.ErrorContains(t, w.process(ctx, []byte("{")), "decode corpus event failed")
	assert.ErrorContains(t, w.process(ctx, encode(t, model.CorpusEvent{Op: model.CorpusSave, Filename: "x"})), "has no document")
	assert.ErrorIs(t, w.process(ctx, encode(t, model.CorpusEvent{Op: "rename"})), errUnknownOp)
	assert.Empty(t, store.ops)
}

func TestCloseWithoutStart(t *testing.T) {
	w := NewCorpusPersistWorker(nil, &recordingStore{}, "q", nil)
	w.Close()
}
