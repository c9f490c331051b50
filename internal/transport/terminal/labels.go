package terminal

import (
	"fmt"
	"path/filepath"
	"strings"

	"vaultai/internal/model"
)

// CitationLabel is the short location shown next to a citation.
func CitationLabel(c model.Citation) string {
	switch c.Kind {
	case model.KindDocumentPage:
		return fmt.Sprintf("PDF p.%d", c.Page())
	case model.KindTextChunk:
		ext := strings.ToUpper(strings.TrimPrefix(filepath.Ext(c.SourceID), "."))
		if ext == "" {
			ext = "Text"
		}
		return fmt.Sprintf("%s #%d", ext, c.Page())
	case model.KindAudioSegment:
		return FormatTimestamp(c.Start()) + " - " + FormatTimestamp(c.End())
	case model.KindImage:
		if c.Standalone || c.PageOrChunkIndex == nil {
			return "Image"
		}
		return fmt.Sprintf("Image p.%d", c.Page())
	default:
		return string(c.Kind)
	}
}

// FormatTimestamp renders seconds as mm:ss.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func fileIcon(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "📄"
	case ".docx", ".txt", ".md":
		return "📝"
	case ".mp3", ".wav", ".m4a", ".ogg", ".flac":
		return "🎵"
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return "🖼"
	default:
		return "📁"
	}
}
