package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supply: one producer's delivery batch.
type Supply struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
	ProducerID  uint      `gorm:"index;not null" json:"producer_id"`
	Producer    Producer  `gorm:"foreignKey:ProducerID" json:"-"`
	DateCreated time.Time `gorm:"index;not null" json:"date_created"`

	Items []SupplyItem `gorm:"foreignKey:SupplyID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

type SupplyItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SupplyID    uint            `gorm:"index;not null" json:"supply_id"`
	Supply      Supply          `gorm:"foreignKey:SupplyID" json:"-"`
	ProductID   uint            `gorm:"index;not null" json:"product_id"`
	Product     Product         `gorm:"foreignKey:ProductID" json:"-"`
	Quantity    decimal.Decimal `gorm:"type:decimal(6,3);not null" json:"quantity"`
	DateCreated time.Time       `gorm:"index;not null" json:"date_created"`
}
