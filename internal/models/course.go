package models

import (
	"time"

	"github.com/google/uuid"
)

type Course struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TutorID uuid.UUID `gorm:"type:uuid;index;not null" json:"tutor_id"`

	Title        string `gorm:"size:150;not null" json:"title"`
	Type         string `gorm:"size:20;not null;default:'one_on_one'" json:"type"`
	BasePrice    int64  `gorm:"not null" json:"base_price"`
	LessonsCount int    `gorm:"not null;default:1" json:"lessons_count"`
	Active       bool   `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
