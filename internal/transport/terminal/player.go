package terminal

import (
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// CommandPlayer plays audio sources through an external program. The
// command template gets the source URL appended and {start} replaced by
// the start offset in seconds. Seeking while playing restarts the program
// at the new offset.
type CommandPlayer struct {
	mu       sync.Mutex
	command  string
	sources  SourceLocator
	launcher Launcher
	logger   *zap.Logger

	current string
	offset  float64
	proc    Process
}

func NewCommandPlayer(command string, sources SourceLocator, launcher Launcher, logger *zap.Logger) *CommandPlayer {
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandPlayer{command: command, sources: sources, launcher: launcher, logger: logger}
}

func (p *CommandPlayer) CurrentSource() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Load stops any playback and selects sourceID. Nothing is fetched ahead
// of Play, so the source is ready at once.
func (p *CommandPlayer) Load(sourceID string) <-chan struct{} {
	p.mu.Lock()
	p.stopLocked()
	p.current = sourceID
	p.offset = 0
	p.mu.Unlock()

	ready := make(chan struct{})
	close(ready)
	return ready
}

func (p *CommandPlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offset = seconds
	if p.proc != nil {
		p.startLocked()
	}
}

func (p *CommandPlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startLocked()
}

// Stop ends playback and keeps the selected source.
func (p *CommandPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *CommandPlayer) startLocked() {
	p.stopLocked()
	if p.current == "" {
		return
	}
	argv := expandCommand(p.command, map[string]string{
		"start": strconv.FormatFloat(p.offset, 'f', -1, 64),
	})
	argv = append(argv, p.sources.SourceURL(p.current))

	proc, err := p.launcher.Launch(argv)
	if err != nil {
		p.logger.Warn("start playback failed", zap.String("source", p.current), zap.Error(err))
		return
	}
	p.proc = proc
}

func (p *CommandPlayer) stopLocked() {
	if p.proc == nil {
		return
	}
	if err := p.proc.Stop(); err != nil {
		p.logger.Debug("stop playback failed", zap.Error(err))
	}
	p.proc = nil
}
