package models

import "time"

// Producer: a farm or supplier whose products are offered in the weekly form.
type Producer struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Name          string     `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Slug          string     `gorm:"size:200;not null;uniqueIndex" json:"slug"`
	Short         string     `gorm:"size:20;not null;index" json:"short"`
	Description   string     `gorm:"size:1000" json:"description"`
	DisplayOrder  int        `gorm:"not null" json:"display_order"`
	IsActive      bool       `gorm:"not null" json:"is_active"`
	OrderDeadline *time.Time `json:"order_deadline"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Products []Product `gorm:"foreignKey:ProducerID;constraint:OnDelete:CASCADE" json:"products,omitempty"`
}
