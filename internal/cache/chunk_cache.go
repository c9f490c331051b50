package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"vaultai/internal/model"
)

// ChunkCache keeps extracted chunks keyed by the sha256 of the file they
// came from, so re-uploading identical content skips extraction.
type ChunkCache interface {
	Get(ctx context.Context, hash string) ([]model.DocumentChunk, bool, error)
	Set(ctx context.Context, hash string, chunks []model.DocumentChunk) error
}

type RedisChunkCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRedisChunkCache(client *redisv9.Client, ttl time.Duration) *RedisChunkCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisChunkCache{client: client, ttl: ttl}
}

func (c *RedisChunkCache) Get(ctx context.Context, hash string) ([]model.DocumentChunk, bool, error) {
	raw, err := c.client.Get(ctx, chunkKey(hash)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get chunks failed: %w", err)
	}

	var chunks []model.DocumentChunk
	if err := json.Unmarshal([]byte(raw), &chunks); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached chunks failed: %w", err)
	}
	return chunks, true, nil
}

func (c *RedisChunkCache) Set(ctx context.Context, hash string, chunks []model.DocumentChunk) error {
	payload, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshal chunk cache failed: %w", err)
	}
	if err := c.client.Set(ctx, chunkKey(hash), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set chunks failed: %w", err)
	}
	return nil
}

func chunkKey(hash string) string {
	return "vaultai:chunks:" + hash
}

// MemoryChunkCache is used when redis is not configured.
type MemoryChunkCache struct {
	mu      sync.RWMutex
	entries map[string][]model.DocumentChunk
}

func NewMemoryChunkCache() *MemoryChunkCache {
	return &MemoryChunkCache{entries: make(map[string][]model.DocumentChunk)}
}

func (c *MemoryChunkCache) Get(_ context.Context, hash string) ([]model.DocumentChunk, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	chunks, ok := c.entries[hash]
	if !ok {
		return nil, false, nil
	}
	return append([]model.DocumentChunk(nil), chunks...), true, nil
}

func (c *MemoryChunkCache) Set(_ context.Context, hash string, chunks []model.DocumentChunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[hash] = append([]model.DocumentChunk(nil), chunks...)
	return nil
}
