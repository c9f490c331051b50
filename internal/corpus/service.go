package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"vaultai/internal/cache"
	"vaultai/internal/model"
)

var (
	ErrNoDocuments   = errors.New("no documents uploaded yet")
	ErrEmptyQuestion = errors.New("no question provided")
	ErrNoAudio       = errors.New("no audio file provided")
	ErrFileNotFound  = errors.New("file not found")
	ErrInvalidName   = errors.New("invalid filename")
)

var imageKeywords = []string{"image", "graph", "chart", "diagram", "picture", "show"}

// ImageDescriber produces a short description of an image.
type ImageDescriber interface {
	Describe(data []byte) (string, error)
}

// UploadedFile is one member of an upload batch.
type UploadedFile struct {
	Name string
	Data []byte
}

type storedFile struct {
	name    string
	hash    string
	chunks  []model.DocumentChunk
	vectors [][]float32
}

// Service is the in-memory document session behind the development
// backend: ingestion, retrieval and the answer sources.
type Service struct {
	mu    sync.RWMutex
	files map[string]*storedFile
	order []string

	cache      cache.ChunkCache
	describer  ImageDescriber
	embedder   Embedder
	store      Store
	tempDir    string
	transcript string
	logger     *zap.Logger
}

func NewService(chunkCache cache.ChunkCache, describer ImageDescriber, tempDir, transcript string, logger *zap.Logger) *Service {
	if chunkCache == nil {
		chunkCache = cache.NewMemoryChunkCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		files:      make(map[string]*storedFile),
		cache:      chunkCache,
		describer:  describer,
		tempDir:    tempDir,
		transcript: transcript,
		logger:     logger,
	}
}

// Ingest processes a batch and returns the names that were added. Files
// already present with the same content, unsupported types and files
// without extractable content are skipped and not returned.
func (s *Service) Ingest(ctx context.Context, files []UploadedFile) ([]string, error) {
	processed := make([]string, 0, len(files))
	for _, f := range files {
		name, err := cleanName(f.Name)
		if err != nil {
			s.logger.Warn("skipping upload with invalid name", zap.String("filename", f.Name))
			continue
		}
		sum := sha256.Sum256(f.Data)
		hash := hex.EncodeToString(sum[:])

		if s.sameContent(name, hash) {
			s.logger.Info("file already uploaded, skipping", zap.String("filename", name))
			continue
		}

		chunks, err := s.chunksFor(ctx, name, hash, f.Data)
		if errors.Is(err, ErrUnsupportedType) {
			s.logger.Info("unsupported file type, skipping", zap.String("filename", name))
			continue
		}
		if err != nil {
			return processed, fmt.Errorf("process %s failed: %w", name, err)
		}
		if len(chunks) == 0 {
			s.logger.Info("no content extracted, skipping", zap.String("filename", name))
			continue
		}

		if err := s.saveTemp(name, f.Data); err != nil {
			return processed, err
		}

		s.add(&storedFile{name: name, hash: hash, chunks: chunks, vectors: s.embedChunks(ctx, chunks)})
		s.persist(ctx, name, func(st Store) error {
			return st.SaveDocument(ctx, model.CorpusDocument{Filename: name, Hash: hash, Chunks: chunks})
		})

		s.logger.Info("file ingested", zap.String("filename", name), zap.Int("chunks", len(chunks)))
		processed = append(processed, name)
	}
	return processed, nil
}

func (s *Service) sameContent(name, hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[name]
	return ok && f.hash == hash
}

func (s *Service) chunksFor(ctx context.Context, name, hash string, data []byte) ([]model.DocumentChunk, error) {
	cached, ok, err := s.cache.Get(ctx, hash)
	if err != nil {
		s.logger.Warn("chunk cache read failed", zap.Error(err))
	}
	if ok {
		s.logger.Debug("loading chunks from cache", zap.String("filename", name))
		for i := range cached {
			cached[i].Filename = name
			if cached[i].Type == model.SourceStandaloneImage {
				cached[i].ImagePath = name
			}
		}
		return cached, nil
	}

	chunks, err := Extract(name, data, s.transcript)
	if err != nil {
		return nil, err
	}
	if s.describer != nil {
		for i := range chunks {
			if chunks[i].Type != model.SourceStandaloneImage {
				continue
			}
			desc, err := s.describer.Describe(data)
			if err != nil {
				s.logger.Warn("describe image failed", zap.String("filename", name), zap.Error(err))
				continue
			}
			chunks[i].VisionDescription = desc
			chunks[i].Content += ". " + desc
		}
	}

	if len(chunks) > 0 {
		if err := s.cache.Set(ctx, hash, chunks); err != nil {
			s.logger.Warn("chunk cache write failed", zap.Error(err))
		}
	}
	return chunks, nil
}

func (s *Service) saveTemp(name string, data []byte) error {
	if s.tempDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir failed: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.tempDir, name), data, 0o644); err != nil {
		return fmt.Errorf("save upload failed: %w", err)
	}
	return nil
}

// Answer is the retrieval result for one question. Sources is nil when
// nothing relevant was found. Context is the retrieved text a language
// model may answer from.
type Answer struct {
	HTML     string
	Sources  []model.SourceObject
	Question string
	Context  string
}

func (s *Service) Ask(ctx context.Context, question string) (*Answer, error) {
	s.mu.RLock()
	var (
		all     []model.DocumentChunk
		vectors [][]float32
	)
	embedded := s.embedder != nil
	for _, name := range s.order {
		f := s.files[name]
		all = append(all, f.chunks...)
		if len(f.vectors) != len(f.chunks) {
			embedded = false
		}
		vectors = append(vectors, f.vectors...)
	}
	s.mu.RUnlock()

	if len(all) == 0 {
		return nil, ErrNoDocuments
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	var scored []scoredChunk
	if embedded {
		scored = s.embeddingScores(ctx, question, vectors)
	}
	if scored == nil {
		scored = termScores(question, all)
	}

	lower := strings.ToLower(question)
	topK := 2
	if containsAny(lower, imageKeywords) {
		topK = 3
	}
	top := topKScored(scored, topK)
	if len(top) == 0 || top[0].score <= 0 {
		return &Answer{HTML: notFoundHTML, Question: question}, nil
	}

	hits := make([]hit, 0, len(top))
	for _, sc := range top {
		if sc.score <= 0 {
			continue
		}
		hits = append(hits, hit{chunk: all[sc.index], score: sc.score})
	}

	showInline := containsAny(lower, append([]string{"display"}, imageKeywords...))
	sources := make([]model.SourceObject, 0, len(hits))
	for _, h := range hits {
		sources = append(sources, sourceObject(h, showInline))
	}
	return &Answer{
		HTML:     composeAnswer(question, hits),
		Sources:  sources,
		Question: question,
		Context:  contextText(hits),
	}, nil
}

// Transcribe returns the configured transcription for any non-empty audio.
func (s *Service) Transcribe(audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoAudio
	}
	return s.transcript, nil
}

func (s *Service) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	if _, ok := s.files[name]; !ok {
		s.mu.Unlock()
		return ErrFileNotFound
	}
	delete(s.files, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.persist(ctx, name, func(st Store) error { return st.DeleteDocument(ctx, name) })
	return nil
}

func (s *Service) Reset(ctx context.Context) {
	s.mu.Lock()
	s.files = make(map[string]*storedFile)
	s.order = nil
	s.mu.Unlock()

	s.persist(ctx, "", func(st Store) error { return st.DeleteAll(ctx) })
	s.logger.Info("session cleared")
}

func (s *Service) add(f *storedFile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[f.name]; !ok {
		s.order = append(s.order, f.name)
	}
	s.files[f.name] = f
}

func (s *Service) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.order...)
}

func (s *Service) TotalChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, f := range s.files {
		total += len(f.chunks)
	}
	return total
}

func (s *Service) Info() model.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info := model.SessionInfo{
		UploadedFiles: append([]string{}, s.order...),
		FileIndices:   make(map[string]model.FileIndex, len(s.order)),
	}
	hashes := make(map[string]struct{}, len(s.order))
	for _, name := range s.order {
		f := s.files[name]
		n := len(f.chunks)
		info.FileIndices[name] = model.FileIndex{
			Start: info.TotalDocuments,
			End:   info.TotalDocuments + n,
			Count: n,
		}
		info.TotalDocuments += n
		hashes[f.hash] = struct{}{}
	}
	info.VectorStoreSize = info.TotalDocuments
	info.CacheStats.CachedFiles = len(hashes)
	return info
}

// TempPath resolves a served file name inside the temp dir.
func (s *Service) TempPath(name string) (string, error) {
	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.tempDir, clean), nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	base := filepath.Base(filepath.Clean("/" + name))
	if name == "" || base == "/" || base == "." || base != strings.TrimPrefix(filepath.Clean("/"+name), "/") {
		return "", ErrInvalidName
	}
	return base, nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
