package domain

import "time"

// Attachment stores metadata for a file linked to a service call.
type Attachment struct {
	ID         string
	CallID     string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
