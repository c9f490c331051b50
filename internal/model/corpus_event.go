package model

type CorpusOp string

const (
	CorpusSave   CorpusOp = "save"
	CorpusDelete CorpusOp = "delete"
	CorpusReset  CorpusOp = "reset"
)

// CorpusEvent is one queued change to the durable corpus store.
type CorpusEvent struct {
	Op       CorpusOp        `json:"op"`
	Filename string          `json:"filename,omitempty"`
	Document *CorpusDocument `json:"document,omitempty"`
}
