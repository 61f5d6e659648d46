package model

import "time"

type Document struct {
	ID               uint      `gorm:"primaryKey" json:"id" bson:"seq"`
	OwnerID          uint      `gorm:"not null;index" json:"owner_id" bson:"owner_id"`
	StoragePath      string    `gorm:"size:512;not null" json:"-" bson:"storage_path"`
	OriginalFilename string    `gorm:"size:256;not null" json:"original_filename" bson:"original_filename"`
	Format           string    `gorm:"size:8;not null" json:"format" bson:"format"`
	ChunkCount       int       `gorm:"not null;default:0" json:"chunk_count" bson:"chunk_count"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
}
