package domain

import "time"

// Attachment pairs an uploaded file's descriptive fields with a locator
// into object storage. The locator is opaque to everything except the
// object store that issued it.
type Attachment struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	FileSize    int64     `json:"file_size"`
	FileLocator string    `json:"file_locator"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// FileUpload is one incoming file of an upload batch, as handed over by
// the boundary layer. Bytes carries the full payload; streaming uploads
// are not part of this design.
type FileUpload struct {
	OriginalName string
	MediaType    string
	SizeBytes    int64
	Bytes        []byte
}

// AttachmentList is the result shape shared by upload, get and copy.
// TotalSize is the byte sum of exactly the attachments in the list.
type AttachmentList struct {
	Attachments []Attachment `json:"attachments"`
	TotalSize   int64        `json:"total_size"`
}
