package model

import (
	"encoding/json"
	"time"
)

// StoredDocument is the database row for one ingested file.
type StoredDocument struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Filename  string    `gorm:"size:255;not null;uniqueIndex" json:"filename"`
	Hash      string    `gorm:"size:64;not null;index" json:"hash"`
	CreatedAt time.Time `json:"created_at"`
}

// StoredChunk keeps one extracted chunk of a stored document. Seq orders the
// chunks within their document.
type StoredChunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	Seq        int       `gorm:"not null" json:"seq"`
	Type       string    `gorm:"size:32;not null" json:"type"`
	PageNum    int       `json:"page_num"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Timing     string    `gorm:"type:text" json:"-"` // JSON [start, end] for audio
	ImagePath  string    `gorm:"size:255" json:"image_path"`
	Vision     string    `gorm:"type:text" json:"vision_description"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewStoredChunk converts a chunk for storage.
func NewStoredChunk(documentID uint, seq int, c DocumentChunk) StoredChunk {
	sc := StoredChunk{
		DocumentID: documentID,
		Seq:        seq,
		Type:       string(c.Type),
		PageNum:    c.PageNum,
		Content:    c.Content,
		ImagePath:  c.ImagePath,
		Vision:     c.VisionDescription,
	}
	if c.StartTime != nil && c.EndTime != nil {
		b, _ := json.Marshal([2]float64{*c.StartTime, *c.EndTime})
		sc.Timing = string(b)
	}
	return sc
}

// Chunk converts back to the in-memory form for filename.
func (c StoredChunk) Chunk(filename string) DocumentChunk {
	out := DocumentChunk{
		Filename:          filename,
		Type:              SourceType(c.Type),
		PageNum:           c.PageNum,
		Content:           c.Content,
		ImagePath:         c.ImagePath,
		VisionDescription: c.Vision,
	}
	var timing [2]float64
	if c.Timing != "" && json.Unmarshal([]byte(c.Timing), &timing) == nil {
		start, end := timing[0], timing[1]
		out.StartTime, out.EndTime = &start, &end
	}
	return out
}
