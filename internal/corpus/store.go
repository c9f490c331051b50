package corpus

import (
	"context"

	"go.uber.org/zap"

	"vaultai/internal/model"
)

// Store keeps ingested documents beyond the life of the process.
type Store interface {
	SaveDocument(ctx context.Context, doc model.CorpusDocument) error
	DeleteDocument(ctx context.Context, filename string) error
	DeleteAll(ctx context.Context) error
}

// Embedder turns texts into vectors for semantic retrieval.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// UseStore mirrors every later ingest, removal and reset into st. Call it
// before the service handles requests.
func (s *Service) UseStore(st Store) {
	s.store = st
}

// UseEmbedder switches retrieval to embedding similarity. Term matching is
// still used whenever an embedding call fails.
func (s *Service) UseEmbedder(e Embedder) {
	s.embedder = e
}

// Restore loads previously stored documents without writing them back.
func (s *Service) Restore(ctx context.Context, docs []model.CorpusDocument) int {
	restored := 0
	for _, doc := range docs {
		name, err := cleanName(doc.Filename)
		if err != nil || len(doc.Chunks) == 0 {
			s.logger.Warn("skipping stored document", zap.String("filename", doc.Filename))
			continue
		}
		s.add(&storedFile{
			name:    name,
			hash:    doc.Hash,
			chunks:  doc.Chunks,
			vectors: s.embedChunks(ctx, doc.Chunks),
		})
		restored++
	}
	s.logger.Info("corpus restored", zap.Int("documents", restored))
	return restored
}

func (s *Service) persist(ctx context.Context, filename string, op func(Store) error) {
	if s.store == nil {
		return
	}
	if err := op(s.store); err != nil {
		s.logger.Warn("corpus store write failed", zap.String("filename", filename), zap.Error(err))
	}
}

func (s *Service) embedChunks(ctx context.Context, chunks []model.DocumentChunk) [][]float32 {
	if s.embedder == nil || len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Filename + " " + c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil || len(vectors) != len(chunks) {
		s.logger.Warn("embed chunks failed, term matching will be used",
			zap.Int("chunks", len(chunks)),
			zap.Int("vectors", len(vectors)),
			zap.Error(err),
		)
		return nil
	}
	return vectors
}

// embeddingScores returns nil when the question cannot be embedded.
func (s *Service) embeddingScores(ctx context.Context, question string, vectors [][]float32) []scoredChunk {
	query, err := s.embedder.EmbedBatch(ctx, []string{question})
	if err != nil || len(query) != 1 {
		s.logger.Warn("embed question failed, using term matching", zap.Error(err))
		return nil
	}
	scored := make([]scoredChunk, len(vectors))
	for i, v := range vectors {
		scored[i] = scoredChunk{index: i, score: cosineSimilarity(query[0], v)}
	}
	return scored
}
