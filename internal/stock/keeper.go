// Package stock is the only writer of Product.quantity_in_stock.
//
// Every method runs inside the caller's transaction and locks the product row
// before touching it, so an item mutation and its stock update commit together.
package stock

import (
	"koop-backend/internal/apperr"
	"koop-backend/internal/logger"
	"koop-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemKind selects the table Alter reads the prior quantity from.
type ItemKind int

const (
	OrderItem ItemKind = iota
	SupplyItem
)

type Keeper struct {
	log *zap.Logger
}

func NewKeeper(log *zap.Logger) *Keeper {
	return &Keeper{log: logger.OrNop(log)}
}

// Lock loads the product row with an exclusive row lock.
func (k *Keeper) Lock(tx *gorm.DB, productID uint) (*models.Product, error) {
	var p models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, productID).Error
	if err != nil {
		return nil, apperr.NotFoundAs(err, "product")
	}
	return &p, nil
}

// Reduce subtracts q from the product's stock, or adds it when negative is true.
// Products without a stock counter are left untouched. The result may go below zero.
func (k *Keeper) Reduce(tx *gorm.DB, productID uint, q decimal.Decimal, negative bool) error {
	if q.IsZero() {
		return nil
	}
	p, err := k.Lock(tx, productID)
	if err != nil {
		return err
	}
	if !p.IsStocked() {
		return nil
	}

	delta := q.Neg()
	if negative {
		delta = q
	}
	next := p.QuantityInStock.Decimal.Add(delta)
	if next.IsNegative() {
		k.log.Info("stock below zero", zap.Uint("product_id", productID), zap.String("quantity_in_stock", next.String()))
	}

	err = tx.Model(&models.Product{}).Where("id = ?", productID).
		Update("quantity_in_stock", decimal.NewNullDecimal(next)).Error
	return apperr.FromDB(err)
}

// Alter applies the difference between newQ and the stored quantity of the referenced item.
// It must run before the item row itself is updated.
func (k *Keeper) Alter(tx *gorm.DB, productID uint, newQ decimal.Decimal, itemID uint, kind ItemKind, negative bool) error {
	oldQ, err := k.itemQuantity(tx, itemID, kind)
	if err != nil {
		return err
	}
	return k.Reduce(tx, productID, newQ.Sub(oldQ), negative)
}

func (k *Keeper) itemQuantity(tx *gorm.DB, itemID uint, kind ItemKind) (decimal.Decimal, error) {
	switch kind {
	case OrderItem:
		var item models.OrderItem
		if err := tx.Select("id", "quantity").First(&item, itemID).Error; err != nil {
			return decimal.Zero, apperr.NotFoundAs(err, "order item")
		}
		return item.Quantity, nil
	case SupplyItem:
		var item models.SupplyItem
		if err := tx.Select("id", "quantity").First(&item, itemID).Error; err != nil {
			return decimal.Zero, apperr.NotFoundAs(err, "supply item")
		}
		return item.Quantity, nil
	}
	return decimal.Zero, apperr.Invariant("unknown item kind", nil)
}

// SetToZero clears this week's delivered quantity of the given products.
func (k *Keeper) SetToZero(tx *gorm.DB, productIDs ...uint) error {
	if len(productIDs) == 0 {
		return nil
	}
	err := tx.Model(&models.Product{}).Where("id IN ?", productIDs).
		Update("quantity_delivered_this_week", decimal.NewNullDecimal(decimal.Zero)).Error
	return apperr.FromDB(err)
}

// SwitchActive sets is_active on every product of the producer.
func (k *Keeper) SwitchActive(tx *gorm.DB, producerID uint, active bool) error {
	err := tx.Model(&models.Product{}).Where("producer_id = ?", producerID).
		Update("is_active", active).Error
	return apperr.FromDB(err)
}

// SetStock overwrites the stock counter from a staff correction. Null turns stock keeping off.
func (k *Keeper) SetStock(tx *gorm.DB, productID uint, q decimal.NullDecimal) error {
	if _, err := k.Lock(tx, productID); err != nil {
		return err
	}
	k.log.Info("stock set", zap.Uint("product_id", productID), zap.String("quantity_in_stock", q.Decimal.String()), zap.Bool("stocked", q.Valid))
	err := tx.Model(&models.Product{}).Where("id = ?", productID).Update("quantity_in_stock", q).Error
	return apperr.FromDB(err)
}
