package corpus

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"vaultai/internal/model"
	"vaultai/internal/pkg/pdfextract"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 100
)

var ErrUnsupportedType = errors.New("unsupported file type")

var (
	audioExts = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".ogg": true}
	imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}
)

// Extract splits an uploaded file into retrievable chunks according to its
// extension.
func Extract(name string, data []byte, transcript string) ([]model.DocumentChunk, error) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".pdf":
		return extractPDF(name, data)
	case ext == ".docx":
		text, err := docxText(data)
		if err != nil {
			return nil, err
		}
		return textChunks(name, model.SourceDocx, text), nil
	case ext == ".txt" || ext == ".md":
		return textChunks(name, model.SourceText, string(data)), nil
	case audioExts[ext]:
		return audioChunks(name, data, transcript), nil
	case imageExts[ext]:
		return []model.DocumentChunk{{
			Filename:  name,
			Type:      model.SourceStandaloneImage,
			Content:   "image " + strings.TrimSuffix(name, filepath.Ext(name)),
			ImagePath: name,
		}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
}

func extractPDF(name string, data []byte) ([]model.DocumentChunk, error) {
	pages, err := pdfextract.ExtractPages(data)
	if err != nil {
		return nil, err
	}
	chunks := make([]model.DocumentChunk, 0, len(pages))
	for _, p := range pages {
		chunks = append(chunks, model.DocumentChunk{
			Filename: name,
			Type:     model.SourcePDF,
			PageNum:  p.Num,
			Content:  p.Text,
		})
	}
	return chunks, nil
}

func textChunks(name string, kind model.SourceType, text string) []model.DocumentChunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	pieces := chunkText(text, defaultChunkSize, defaultChunkOverlap)
	chunks := make([]model.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, model.DocumentChunk{
			Filename: name,
			Type:     kind,
			PageNum:  i + 1,
			Content:  piece,
		})
	}
	return chunks
}

// audioChunks produces a single segment spanning the recording. Only WAV
// headers are inspected for the duration.
func audioChunks(name string, data []byte, transcript string) []model.DocumentChunk {
	start := 0.0
	chunk := model.DocumentChunk{
		Filename:  name,
		Type:      model.SourceAudio,
		Content:   strings.TrimSpace("audio recording " + name + ". " + transcript),
		StartTime: &start,
	}
	if d, ok := wavDuration(data); ok {
		chunk.EndTime = &d
	}
	return []model.DocumentChunk{chunk}
}

// chunkText splits text into overlapping chunks by rune count.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = defaultChunkSize
	}
	if overlap >= size || overlap < 0 {
		overlap = size / 2
	}
	var chunks []string
	runes := []rune(text)
	for i := 0; i < len(runes); {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		i += size - overlap
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// docxText pulls the paragraph text out of word/document.xml.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx failed: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open docx body failed: %w", err)
		}
		defer rc.Close()
		return markupText(rc)
	}
	return "", errors.New("docx has no word/document.xml")
}

func markupText(r io.Reader) (string, error) {
	var sb strings.Builder
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", fmt.Errorf("read docx body failed: %w", err)
			}
			return strings.TrimSpace(sb.String()), nil
		case html.TextToken:
			sb.Write(z.Text())
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "w:p" {
				sb.WriteByte('\n')
			}
		case html.SelfClosingTagToken, html.StartTagToken:
			if name, _ := z.TagName(); string(name) == "w:tab" {
				sb.WriteByte('\t')
			}
		}
	}
}

// wavDuration reads the canonical RIFF header.
func wavDuration(data []byte) (float64, bool) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, false
	}
	byteRate := binary.LittleEndian.Uint32(data[28:32])
	if byteRate == 0 {
		return 0, false
	}
	// Streamed recordings often leave the data size unset.
	size := uint32(len(data) - 44)
	if declared := binary.LittleEndian.Uint32(data[40:44]); declared != 0 && declared != 0xFFFFFFFF && declared < size {
		size = declared
	}
	return float64(size) / float64(byteRate), true
}
