package entity

import (
	"time"

	"gorm.io/gorm"
)

// Stock is one ticker in the analysis universe.
type Stock struct {
	ID        uint           `gorm:"primaryKey"`
	Code      string         `gorm:"uniqueIndex;not null"`
	Name      string         `gorm:"not null"`
	Exchange  string         `json:"exchange"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for the Stock model.
func (Stock) TableName() string {
	return "stocks"
}
