package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type CitationKind string

const (
	KindDocumentPage CitationKind = "document-page"
	KindTextChunk    CitationKind = "text-chunk"
	KindAudioSegment CitationKind = "audio-segment"
	KindImage        CitationKind = "image"
)

// Citation points at the source material backing part of an answer.
// Optional numeric fields are nil when the backend did not send them.
type Citation struct {
	Kind              CitationKind `json:"kind"`
	SourceID          string       `json:"source_id"`
	PageOrChunkIndex  *int         `json:"page_or_chunk_index,omitempty"`
	StartTime         *float64     `json:"start_time,omitempty"`
	EndTime           *float64     `json:"end_time,omitempty"`
	TextExcerpt       string       `json:"text_excerpt,omitempty"`
	ImagePath         string       `json:"image_path,omitempty"`
	Score             float64      `json:"score,omitempty"`
	Inline            bool         `json:"inline,omitempty"`
	Standalone        bool         `json:"standalone,omitempty"`
	VisionDescription string       `json:"vision_description,omitempty"`
}

// KindFromWire maps the backend's source type names onto citation kinds.
// Unknown names are kept verbatim so they can be routed as no-ops.
func KindFromWire(wireType string) CitationKind {
	switch wireType {
	case "pdf":
		return KindDocumentPage
	case "docx", "text":
		return KindTextChunk
	case "audio":
		return KindAudioSegment
	case "image", "standalone_image":
		return KindImage
	default:
		return CitationKind(wireType)
	}
}

// UnmarshalJSON accepts both the normalized field names and the backend's
// source object (type, source_filename, page_num, source_content, ...).
func (c *Citation) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind              string          `json:"kind"`
		Type              string          `json:"type"`
		SourceID          string          `json:"source_id"`
		SourceFilename    string          `json:"source_filename"`
		PageOrChunkIndex  *wireNumber     `json:"page_or_chunk_index"`
		PageNum           *wireNumber     `json:"page_num"`
		StartTime         *wireNumber     `json:"start_time"`
		EndTime           *wireNumber     `json:"end_time"`
		TextExcerpt       string          `json:"text_excerpt"`
		SourceContent     json.RawMessage `json:"source_content"`
		ImagePath         string          `json:"image_path"`
		Score             float64         `json:"score"`
		Inline            bool            `json:"inline"`
		ShowInline        bool            `json:"show_inline"`
		Standalone        bool            `json:"standalone"`
		VisionDescription string          `json:"vision_description"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode citation failed: %w", err)
	}

	out := Citation{
		SourceID:          firstNonEmpty(raw.SourceID, raw.SourceFilename),
		StartTime:         raw.StartTime.float(),
		EndTime:           raw.EndTime.float(),
		TextExcerpt:       raw.TextExcerpt,
		ImagePath:         raw.ImagePath,
		Score:             raw.Score,
		Inline:            raw.Inline || raw.ShowInline,
		Standalone:        raw.Standalone || raw.Type == "standalone_image",
		VisionDescription: raw.VisionDescription,
	}
	if raw.Kind != "" {
		out.Kind = CitationKind(raw.Kind)
	} else {
		out.Kind = KindFromWire(raw.Type)
	}

	page := raw.PageOrChunkIndex.float()
	if page == nil {
		page = raw.PageNum.float()
	}
	if page != nil {
		n := int(*page)
		out.PageOrChunkIndex = &n
	}

	// source_content is only usable when it is a JSON string.
	if out.TextExcerpt == "" && len(raw.SourceContent) > 0 && raw.SourceContent[0] == '"' {
		var text string
		if err := json.Unmarshal(raw.SourceContent, &text); err == nil {
			out.TextExcerpt = text
		}
	}

	*c = out
	return nil
}

// wireNumber is a JSON number that may also arrive as a numeric string.
type wireNumber float64

func (n *wireNumber) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	if strings.HasPrefix(text, `"`) {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", data)
	}
	*n = wireNumber(v)
	return nil
}

func (n *wireNumber) float() *float64 {
	if n == nil {
		return nil
	}
	v := float64(*n)
	return &v
}

func (c Citation) Page() int {
	if c.PageOrChunkIndex == nil {
		return 0
	}
	return *c.PageOrChunkIndex
}

func (c Citation) Start() float64 {
	if c.StartTime == nil {
		return 0
	}
	return *c.StartTime
}

func (c Citation) End() float64 {
	if c.EndTime == nil {
		return 0
	}
	return *c.EndTime
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
