package models

import "github.com/shopspring/decimal"

// WeightScheme: one allowed order quantity. The zero scheme is attached to every product.
type WeightScheme struct {
	ID       uint            `gorm:"primaryKey" json:"id"`
	Quantity decimal.Decimal `gorm:"type:decimal(6,3);not null;uniqueIndex" json:"quantity"`
}

type Status struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	StatusType string `gorm:"size:100;not null" json:"status_type"`
	Desc       string `gorm:"size:1000" json:"desc"`
}
