package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

const excerptWidth = 72

// SourceLocator resolves a backend file name to a URL.
type SourceLocator interface {
	SourceURL(filename string) string
}

// Presenter opens documents and images with the system opener and prints
// text excerpts in a frame.
type Presenter struct {
	out         io.Writer
	openCommand string
	sources     SourceLocator
	launcher    Launcher
	logger      *zap.Logger
}

func NewPresenter(out io.Writer, openCommand string, sources SourceLocator, launcher Launcher, logger *zap.Logger) *Presenter {
	if launcher == nil {
		launcher = ExecLauncher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Presenter{
		out:         out,
		openCommand: openCommand,
		sources:     sources,
		launcher:    launcher,
		logger:      logger,
	}
}

func (p *Presenter) OpenDocument(sourceID string, page int) {
	target := p.sources.SourceURL(sourceID)
	if page > 0 {
		target += "#page=" + strconv.Itoa(page)
	}
	p.open(target)
}

func (p *Presenter) OpenImage(imagePath string) {
	target := imagePath
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = p.sources.SourceURL(imagePath)
	}
	p.open(target)
}

func (p *Presenter) ShowExcerpt(title, text string) {
	rule := strings.Repeat("─", excerptWidth)
	fmt.Fprintf(p.out, "┌%s\n│ %s\n├%s\n", rule, title, rule)
	for _, line := range wrap(text, excerptWidth-2) {
		fmt.Fprintf(p.out, "│ %s\n", line)
	}
	fmt.Fprintf(p.out, "└%s\n", rule)
}

func (p *Presenter) open(target string) {
	argv := expandCommand(p.openCommand, nil)
	if len(argv) == 0 {
		fmt.Fprintf(p.out, "open: %s\n", target)
		return
	}
	argv = append(argv, target)
	if _, err := p.launcher.Launch(argv); err != nil {
		p.logger.Warn("open source failed", zap.String("target", target), zap.Error(err))
		fmt.Fprintf(p.out, "could not open %s (%v)\n", target, err)
	}
}

// wrap breaks text into lines of at most width runes, on spaces where
// possible. Existing line breaks are kept.
func wrap(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := ""
		for _, w := range words {
			for utf8.RuneCountInString(w) > width {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				head := []rune(w)[:width]
				out = append(out, string(head))
				w = string([]rune(w)[width:])
			}
			switch {
			case line == "":
				line = w
			case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(w) > width:
				out = append(out, line)
				line = w
			default:
				line += " " + w
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
