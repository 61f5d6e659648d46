package model

import "time"

// PromptTemplate holds at most one template per owner; writes are upserts.
type PromptTemplate struct {
	OwnerID   uint      `gorm:"primaryKey;autoIncrement:false" json:"owner_id" bson:"owner_id"`
	Template  string    `gorm:"type:text;not null" json:"prompt_template" bson:"prompt_template"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ModelSelection holds the owner's active generation model.
type ModelSelection struct {
	OwnerID   uint      `gorm:"primaryKey;autoIncrement:false" json:"owner_id" bson:"owner_id"`
	ModelID   string    `gorm:"size:128;not null" json:"model_id" bson:"model_id"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// LLMModel is a catalog entry reported by the generation backend.
type LLMModel struct {
	ID          string `json:"id" toml:"id"`
	DisplayName string `json:"display_name" toml:"display_name"`
}
