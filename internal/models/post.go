package models

import (
	"time"
)

type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"` // Markdown
	Summary   string    `gorm:"size:500" json:"summary,omitempty"`
	Cover     string    `json:"cover,omitempty"` // Optional
	Tags      []string  `gorm:"serializer:json" json:"tags,omitempty"`
	Category  string    `gorm:"size:50" json:"category,omitempty"`
	Draft     bool      `gorm:"default:false;index" json:"draft,omitempty"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}
