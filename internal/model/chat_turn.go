package model

import "time"

type ChatTurn struct {
	ID                uint      `gorm:"primaryKey" json:"id" bson:"seq"`
	OwnerID           uint      `gorm:"not null;index" json:"-" bson:"owner_id"`
	UserMessage       string    `gorm:"type:text;not null" json:"message" bson:"message"`
	AssistantResponse string    `gorm:"type:mediumtext;not null" json:"response" bson:"response"`
	ModelID           string    `gorm:"size:128" json:"model_id" bson:"model_id"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at"`
}
