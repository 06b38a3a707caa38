package models

// FileState represents the processing state reported by the remote model service.
type FileState string

const (
	FileStatePending    FileState = "PENDING"
	FileStateProcessing FileState = "PROCESSING"
	FileStateReady      FileState = "READY"
	FileStateFailed     FileState = "FAILED"
)

// InProgress reports whether the remote service is still working on the file.
func (s FileState) InProgress() bool {
	return s == FileStatePending || s == FileStateProcessing
}

// RemoteFile is the handle returned by the remote service for an uploaded file.
type RemoteFile struct {
	Name     string    `json:"name"` // e.g. "files/abc-123"
	URI      string    `json:"uri"`
	MIMEType string    `json:"mimeType"`
	State    FileState `json:"state"`
	Size     int64     `json:"size"`
}
