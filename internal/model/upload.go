package model

type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadConfirmed UploadStatus = "confirmed"
)

// UploadEntry is the client's view of one file known to the session.
type UploadEntry struct {
	Filename string       `json:"filename"`
	Status   UploadStatus `json:"status"`
}

func (e UploadEntry) Pending() bool {
	return e.Status == UploadPending
}
