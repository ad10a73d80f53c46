package models

import (
	"time"

	"gorm.io/gorm"

	"marketplace-server/types"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review represents the customer's rating of a completed service request
type Review struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	RequestID  uint           `json:"request_id" gorm:"not null;uniqueIndex"`
	CustomerID uint           `json:"customer_id" gorm:"not null;index"`
	Rating     int            `json:"rating" gorm:"type:int;not null;check:rating >= 1 AND rating <= 5"`
	Comment    string         `json:"comment" gorm:"type:text"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}

// ReviewCreate represents the input for submitting a review
type ReviewCreate struct {
	RequestID uint   `json:"request_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
}

// Validate checks the rating range and request reference
func (in *ReviewCreate) Validate() error {
	if in.RequestID == 0 {
		return types.Validationf("Submit", "request_id is required")
	}
	if in.Rating < MinRating || in.Rating > MaxRating {
		return types.Validationf("Submit", "rating must be between %d and %d, got %d", MinRating, MaxRating, in.Rating)
	}
	return nil
}
