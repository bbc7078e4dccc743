package models

import "time"

// User is an account that owns decks and a collection. APIToken is presented
// as a bearer token.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	APIToken  string    `json:"-" gorm:"not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}
