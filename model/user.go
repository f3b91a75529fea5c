package model

import "time"

// User represents an account owning a sample library.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:100;uniqueIndex"`
	Email        string    `json:"email" gorm:"size:255;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
