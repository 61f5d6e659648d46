package model

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id" bson:"seq"`
	Username     string    `gorm:"size:64;not null;uniqueIndex" json:"username" bson:"username"`
	Email        string    `gorm:"size:128;not null;uniqueIndex" json:"email" bson:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-" bson:"password_hash"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}
