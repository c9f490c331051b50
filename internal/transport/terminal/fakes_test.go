package terminal

import (
	"errors"
	"sync"
)

type fakeLocator struct{}

func (fakeLocator) SourceURL(name string) string { return "http://backend/temp/" + name }

type fakeProcess struct {
	stopped bool
}

func (p *fakeProcess) Stop() error {
	p.stopped = true
	return nil
}

type fakeLauncher struct {
	mu    sync.Mutex
	calls [][]string
	procs []*fakeProcess
	err   error
}

func (l *fakeLauncher) Launch(argv []string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, append([]string(nil), argv...))
	if l.err != nil {
		return nil, l.err
	}
	p := &fakeProcess{}
	l.procs = append(l.procs, p)
	return p, nil
}

var errLaunch = errors.New("no such program")
