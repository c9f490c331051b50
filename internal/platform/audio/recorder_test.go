package audio

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chunkSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *chunkSink) add(b []byte) {
	s.mu.Lock()
	s.buf.Write(b)
	s.mu.Unlock()
}

func (s *chunkSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestRequestAccessMissingProgram(t *testing.T) {
	dev := NewCommandDevice("definitely-not-a-capture-program-xyz", 0, nil)
	_, err := dev.RequestAccess(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find capture program failed")
}

func TestRequestAccessEmptyCommand(t *testing.T) {
	_, err := NewCommandDevice("  ", 0, nil).RequestAccess(context.Background())
	assert.ErrorIs(t, err, ErrNoCommand)
}

func TestRecorderDeliversAllOutputBeforeFinalize(t *testing.T) {
	dev := NewCommandDevice("printf RIFFDATA", 3, nil)
	rec, err := dev.RequestAccess(context.Background())
	require.NoError(t, err)

	sink := &chunkSink{}
	require.NoError(t, rec.Start(sink.add))
	require.NoError(t, rec.Finalize(context.Background()))
	assert.Equal(t, "RIFFDATA", sink.String())
	require.NoError(t, rec.Release())
	require.NoError(t, rec.Release())
}

func TestRecorderInterruptsLongRunningProgram(t *testing.T) {
	dev := NewCommandDevice("sleep 30", 0, nil)
	rec, err := dev.RequestAccess(context.Background())
	require.NoError(t, err)
	require.NoError(t, rec.Start(func([]byte) {}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	require.NoError(t, rec.Finalize(ctx))
	assert.Less(t, time.Since(start), 5*time.Second)
	require.NoError(t, rec.Release())
}

func TestReleaseWithoutFinalize(t *testing.T) {
	dev := NewCommandDevice("sleep 30", 0, nil)
	rec, err := dev.RequestAccess(context.Background())
	require.NoError(t, err)
	require.NoError(t, rec.Start(func([]byte) {}))
	require.NoError(t, rec.Release())
}

func TestStartTwice(t *testing.T) {
	dev := NewCommandDevice("printf x", 0, nil)
	rec, err := dev.RequestAccess(context.Background())
	require.NoError(t, err)
	require.NoError(t, rec.Start(func([]byte) {}))
	assert.Error(t, rec.Start(func([]byte) {}))
	require.NoError(t, rec.Finalize(context.Background()))
}
