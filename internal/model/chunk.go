package model

import "time"

// Chunk is one overlapping word window of an ingested document.
// SourceChunkID is unique per ingestion run, so re-uploading the same
// file never replaces chunks written by an earlier run.
type Chunk struct {
	ID            uint      `gorm:"primaryKey" json:"id" bson:"seq"`
	OwnerID       uint      `gorm:"not null;index" json:"owner_id" bson:"owner_id"`
	DocumentID    uint      `gorm:"not null;index" json:"document_id" bson:"document_id"`
	SourceChunkID string    `gorm:"size:320;not null;uniqueIndex" json:"source_chunk_id" bson:"source_chunk_id"`
	Ordinal       int       `gorm:"not null" json:"ordinal" bson:"ordinal"`
	Text          string    `gorm:"type:mediumtext;not null" json:"text" bson:"text"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}
