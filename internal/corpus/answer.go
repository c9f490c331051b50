package corpus

import (
	"fmt"
	"html"
	"strings"

	"vaultai/internal/model"
)

const (
	notFoundHTML   = "<div><p>I couldn't find any relevant information in the uploaded documents to answer your question.</p></div>"
	maxExcerptRune = 280
)

type hit struct {
	chunk model.DocumentChunk
	score float32
}

// composeAnswer renders an extractive HTML answer from the retrieved
// chunks, one paragraph per source.
func composeAnswer(question string, hits []hit) string {
	var sb strings.Builder
	sb.WriteString("<div>")
	fmt.Fprintf(&sb, "<p>Here is what the uploaded documents say about <em>%s</em>:</p>", html.EscapeString(question))
	sb.WriteString("<ul>")
	for _, h := range hits {
		sb.WriteString("<li><strong>")
		sb.WriteString(html.EscapeString(locationLabel(h.chunk)))
		sb.WriteString("</strong>: ")
		sb.WriteString(html.EscapeString(excerpt(h.chunk.Content, maxExcerptRune)))
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul></div>")
	return sb.String()
}

// contextText lists the retrieved chunks as numbered blocks for a model
// prompt.
func contextText(hits []hit) string {
	var sb strings.Builder
	for i, h := range hits {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "[%d] %s\n", i+1, locationLabel(h.chunk))
		sb.WriteString(strings.TrimSpace(h.chunk.Content))
		if h.chunk.VisionDescription != "" {
			sb.WriteString("\nImage description: ")
			sb.WriteString(h.chunk.VisionDescription)
		}
	}
	return sb.String()
}

func locationLabel(c model.DocumentChunk) string {
	switch c.Type {
	case model.SourcePDF:
		return fmt.Sprintf("%s, page %d", c.Filename, c.PageNum)
	case model.SourceText, model.SourceDocx:
		return fmt.Sprintf("%s, chunk %d", c.Filename, c.PageNum)
	case model.SourceAudio:
		return fmt.Sprintf("%s, %s", c.Filename, timestampRange(c.StartTime, c.EndTime))
	default:
		return c.Filename
	}
}

func sourceObject(h hit, showInline bool) model.SourceObject {
	c := h.chunk
	page := c.PageNum
	src := model.SourceObject{
		SourceFilename: c.Filename,
		PageNum:        &page,
		SourceContent:  c.Content,
		Type:           c.Type,
		Score:          float64(h.score),
	}
	switch c.Type {
	case model.SourceImage, model.SourceStandaloneImage:
		src.ImagePath = c.ImagePath
		src.VisionDescription = c.VisionDescription
		src.ShowInline = showInline
	case model.SourceAudio:
		src.StartTime = c.StartTime
		src.EndTime = c.EndTime
		if c.StartTime != nil && c.EndTime != nil {
			d := *c.EndTime - *c.StartTime
			src.Duration = &d
		}
		src.TimestampDisplay = timestampRange(c.StartTime, c.EndTime)
	}
	return src
}

func timestampRange(start, end *float64) string {
	return formatTimestamp(start) + " - " + formatTimestamp(end)
}

func formatTimestamp(seconds *float64) string {
	if seconds == nil {
		return "00:00"
	}
	total := int(*seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func excerpt(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
