package terminal

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Launcher starts external programs such as the system opener or an
// audio player.
type Launcher interface {
	Launch(argv []string) (Process, error)
}

type Process interface {
	Stop() error
}

// ExecLauncher runs programs detached from the terminal's stdio.
type ExecLauncher struct{}

func (ExecLauncher) Launch(argv []string) (Process, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("launch failed: empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s failed: %w", argv[0], err)
	}
	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
	once sync.Once
}

func (p *execProcess) Stop() error {
	var err error
	p.once.Do(func() {
		select {
		case <-p.done:
			return
		default:
		}
		err = p.cmd.Process.Kill()
		<-p.done
	})
	return err
}

// expandCommand splits a command template and substitutes {key} tokens.
func expandCommand(template string, vars map[string]string) []string {
	fields := strings.Fields(template)
	for i, f := range fields {
		for k, v := range vars {
			f = strings.ReplaceAll(f, "{"+k+"}", v)
		}
		fields[i] = f
	}
	return fields
}
