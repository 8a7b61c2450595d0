package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PickUpDay string

const (
	PickUpWednesday PickUpDay = "środa"
	PickUpThursday  PickUpDay = "czwartek"
)

func (d PickUpDay) Valid() bool {
	return d == PickUpWednesday || d == PickUpThursday
}

type OrderState string

const (
	OrderOpen OrderState = "open"
	OrderPaid OrderState = "paid"
)

type Order struct {
	ID          uint                `gorm:"primaryKey" json:"id"`
	UserID      uint                `gorm:"index;not null" json:"user_id"`
	User        User                `gorm:"foreignKey:UserID" json:"-"`
	PickUpDay   PickUpDay           `gorm:"size:10;not null" json:"pick_up_day"`
	DateCreated time.Time           `gorm:"index;not null" json:"date_created"`
	OrderNumber int                 `gorm:"not null;index" json:"order_number"` // dense per week, enforced in the order book
	PaidAmount  decimal.NullDecimal `gorm:"type:decimal(9,2)" json:"paid_amount"`
	IsGiven     bool                `gorm:"not null" json:"is_given"`
	UpdatedAt   time.Time           `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

func (o *Order) State() OrderState {
	if o.PaidAmount.Valid {
		return OrderPaid
	}
	return OrderOpen
}

// OrderItem: at most one per (order, product); quantity is never zero.
type OrderItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OrderID         uint            `gorm:"not null;uniqueIndex:idx_order_product" json:"order_id"`
	Order           Order           `gorm:"foreignKey:OrderID" json:"-"`
	ProductID       uint            `gorm:"not null;uniqueIndex:idx_order_product;index" json:"product_id"`
	Product         Product         `gorm:"foreignKey:ProductID" json:"-"`
	Quantity        decimal.Decimal `gorm:"type:decimal(6,3);not null" json:"quantity"`
	ItemOrderedDate time.Time       `gorm:"index;not null" json:"item_ordered_date"`
}
