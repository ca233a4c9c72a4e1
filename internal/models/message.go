package models

import "time"

// SystemAuthor is the sentinel author for group-event messages that have no
// human sender (membership changes, subject edits, etc.).
const SystemAuthor = "System"

// Statuses the ingestion core writes. Later transitions belong to the
// external NLP and media-analysis processors.
const (
	NLPStatusPending = "pending"

	MediaStatusPending       = "pending"
	MediaStatusNotApplicable = "not_applicable"
	MediaStatusUploadFailed  = "upload_failed"
)

// ParsedMessage is one message extracted from a chat export, before an
// identity has been assigned and before persistence.
type ParsedMessage struct {
	Timestamp     time.Time
	Author        string
	Text          string
	IsSystem      bool
	HasMedia      bool
	MediaFilename string
}

// MediaRef describes a stored media artifact referenced by a message.
type MediaRef struct {
	OriginalFilename string `json:"original_filename"`
	StorageURI       string `json:"storage_uri"`
	SHA256           string `json:"hash_sha256"`
	MediaType        string `json:"media_type"`
}
