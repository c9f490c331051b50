package model

// SourceType is the backend's name for the kind of material a chunk came
// from. It travels as the "type" field of a source object.
type SourceType string

const (
	SourcePDF             SourceType = "pdf"
	SourceDocx            SourceType = "docx"
	SourceText            SourceType = "text"
	SourceAudio           SourceType = "audio"
	SourceImage           SourceType = "image"
	SourceStandaloneImage SourceType = "standalone_image"
)

// DocumentChunk is one retrievable unit extracted from an uploaded file.
type DocumentChunk struct {
	Filename  string     `json:"filename"`
	Type      SourceType `json:"type"`
	PageNum   int        `json:"page_num,omitempty"`
	Content   string     `json:"content"`
	StartTime *float64   `json:"start_time,omitempty"`
	EndTime   *float64   `json:"end_time,omitempty"`
	ImagePath string     `json:"image_path,omitempty"`

	VisionDescription string `json:"vision_description,omitempty"`
}

// SourceObject is the wire form of one citation inside the sources envelope.
type SourceObject struct {
	SourceFilename    string     `json:"source_filename"`
	PageNum           *int       `json:"page_num,omitempty"`
	SourceContent     string     `json:"source_content"`
	Type              SourceType `json:"type"`
	Score             float64    `json:"score"`
	ImagePath         string     `json:"image_path,omitempty"`
	VisionDescription string     `json:"vision_description,omitempty"`
	ShowInline        bool       `json:"show_inline,omitempty"`
	StartTime         *float64   `json:"start_time,omitempty"`
	EndTime           *float64   `json:"end_time,omitempty"`
	Duration          *float64   `json:"duration,omitempty"`
	TimestampDisplay  string     `json:"timestamp_display,omitempty"`
}

// SessionInfo is the backend's description of the current session.
type SessionInfo struct {
	UploadedFiles   []string             `json:"uploaded_files"`
	FileIndices     map[string]FileIndex `json:"file_indices"`
	TotalDocuments  int                  `json:"total_documents"`
	VectorStoreSize int                  `json:"vector_store_size"`
	CacheStats      CacheStats           `json:"cache_stats"`
}

// FileIndex is the half-open chunk range [Start, End) a file occupies.
type FileIndex struct {
	Start int `json:"start"`
	End   int `json:"end"`
	Count int `json:"count"`
}

type CacheStats struct {
	CachedFiles int `json:"cached_files"`
}

// CorpusDocument is one ingested file and its extracted chunks, as kept by
// the durable corpus store.
type CorpusDocument struct {
	Filename string          `json:"filename"`
	Hash     string          `json:"hash"`
	Chunks   []DocumentChunk `json:"chunks"`
}
