package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultOrderMaxQuantity is used when a product is created without an explicit limit.
var DefaultOrderMaxQuantity = decimal.NewFromInt(9999)

type Product struct {
	ID          uint     `gorm:"primaryKey" json:"id"`
	ProducerID  uint     `gorm:"index;not null" json:"producer_id"`
	Producer    Producer `gorm:"foreignKey:ProducerID" json:"-"`
	Name        string   `gorm:"size:200;not null;uniqueIndex" json:"name"`
	Description string   `gorm:"size:1000" json:"description"`

	Price            decimal.Decimal     `gorm:"type:decimal(7,2);not null" json:"price"`
	OrderMaxQuantity decimal.Decimal     `gorm:"type:decimal(9,3);not null" json:"order_max_quantity"`
	QuantityInStock  decimal.NullDecimal `gorm:"type:decimal(9,3)" json:"quantity_in_stock"` // null: not a stocked product
	OrderDeadline    *time.Time          `json:"order_deadline"`

	// null until staff records this week's delivered quantity
	QuantityDeliveredThisWeek decimal.NullDecimal `gorm:"type:decimal(9,3)" json:"quantity_delivered_this_week"`

	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WeightSchemes []WeightScheme `gorm:"many2many:product_weight_schemes;" json:"weight_schemes,omitempty"`
	Statuses      []Status       `gorm:"many2many:product_statuses;" json:"statuses,omitempty"`
}

// IsStocked reports whether the product keeps a stock counter.
func (p *Product) IsStocked() bool {
	return p.QuantityInStock.Valid
}

// AllowsQuantity reports whether q is one of the product's weight schemes.
// WeightSchemes must be loaded.
func (p *Product) AllowsQuantity(q decimal.Decimal) bool {
	for _, ws := range p.WeightSchemes {
		if ws.Quantity.Equal(q) {
			return true
		}
	}
	return false
}

// DeadlinePassed reports whether the product's order deadline is set and before now.
func (p *Product) DeadlinePassed(now time.Time) bool {
	return p.OrderDeadline != nil && p.OrderDeadline.Before(now)
}
