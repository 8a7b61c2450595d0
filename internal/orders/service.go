// Package orders is the order book: one order per member per week, its items,
// pick-up day, payment and removal.
package orders

import (
	"errors"
	"fmt"

	"koop-backend/internal/apperr"
	"koop-backend/internal/audit"
	"koop-backend/internal/cycle"
	"koop-backend/internal/ledger"
	"koop-backend/internal/logger"
	"koop-backend/internal/models"
	"koop-backend/internal/sequencer"
	"koop-backend/internal/stock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Deps struct {
	DB          *gorm.DB
	Cycle       *cycle.Cycle
	Stock       *stock.Keeper
	Sequencer   *sequencer.Sequencer
	Ledger      *ledger.Ledger
	DefaultFund decimal.Decimal
	Log         *zap.Logger
}

type Service struct {
	db          *gorm.DB
	cycle       *cycle.Cycle
	stock       *stock.Keeper
	seq         *sequencer.Sequencer
	ledger      *ledger.Ledger
	defaultFund decimal.Decimal
	log         *zap.Logger
}

func NewService(d Deps) *Service {
	fund := d.DefaultFund
	if fund.IsZero() {
		fund = models.FundDefault
	}
	return &Service{
		db:          d.DB,
		cycle:       d.Cycle,
		stock:       d.Stock,
		seq:         d.Sequencer,
		ledger:      d.Ledger,
		defaultFund: fund,
		log:         logger.OrNop(d.Log),
	}
}

// CreateOrder opens the actor's order for the current week.
func (s *Service) CreateOrder(actor models.Actor, day models.PickUpDay) (*models.Order, error) {
	if !day.Valid() {
		return nil, apperr.Rejected(apperr.ReasonInvalidPickUpDay, "pick-up day %q is not offered", day)
	}
	if !actor.IsStaff() && !s.cycle.OrderingOpen() {
		return nil, apperr.Rejected(apperr.ReasonOutsideOrderWindow, "ordering is closed")
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := s.cycle.Now()
		// Next takes the sequence lock, which also serializes the duplicate check below
		number, err := s.seq.Next(tx, now)
		if err != nil {
			return err
		}

		week := s.cycle.WeekOf(now)
		var existing int64
		err = tx.Model(&models.Order{}).
			Where("user_id = ? AND date_created >= ? AND date_created < ?", actor.UserID, week.Start, week.End).
			Count(&existing).Error
		if err != nil {
			return apperr.FromDB(err)
		}
		if existing > 0 {
			return apperr.Rejected(apperr.ReasonOrderAlreadyExists, "an order already exists this week")
		}

		order = models.Order{
			UserID:      actor.UserID,
			PickUpDay:   day,
			DateCreated: now,
			OrderNumber: number,
		}
		return apperr.FromDB(tx.Create(&order).Error)
	})
	if err != nil {
		return nil, s.logged(err, "create order", zap.Uint("user_id", actor.UserID))
	}
	return &order, nil
}

// CurrentOrder returns the actor's order of the current week with items, products and producers loaded.
func (s *Service) CurrentOrder(actor models.Actor) (*models.Order, error) {
	week := s.cycle.CurrentWeek()
	var order models.Order
	err := s.db.Preload("Items.Product.Producer").
		Where("user_id = ? AND date_created >= ? AND date_created < ?", actor.UserID, week.Start, week.End).
		Take(&order).Error
	if err != nil {
		return nil, apperr.NotFoundAs(err, "order")
	}
	return &order, nil
}

// ItemInput is one line of the batch order-products form.
type ItemInput struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type ItemResult struct {
	ProductID uint              `json:"product_id"`
	Item      *models.OrderItem `json:"item,omitempty"`
	Err       error             `json:"-"`
}

// AddItems adds every non-zero line in its own transaction. A rejected line does not affect the others.
func (s *Service) AddItems(actor models.Actor, orderID uint, lines []ItemInput) []ItemResult {
	results := make([]ItemResult, 0, len(lines))
	for _, line := range lines {
		if line.Quantity.IsZero() {
			continue
		}
		item, err := s.AddItem(actor, orderID, line.ProductID, line.Quantity)
		results = append(results, ItemResult{ProductID: line.ProductID, Item: item, Err: err})
	}
	return results
}

// AddItem puts a product into the order and takes its quantity from stock.
func (s *Service) AddItem(actor models.Actor, orderID, productID uint, q decimal.Decimal) (*models.OrderItem, error) {
	if !q.IsPositive() {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "quantity must be positive")
	}

	var item models.OrderItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.lockEditable(tx, actor, orderID)
		if err != nil {
			return err
		}

		var dup int64
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ? AND product_id = ?", orderID, productID).Count(&dup).Error; err != nil {
			return apperr.FromDB(err)
		}
		if dup > 0 {
			return apperr.Rejected(apperr.ReasonProductAlreadyInOrder, "product is already in the order")
		}

		product, err := s.lockOrderable(tx, productID)
		if err != nil {
			return err
		}
		if err := s.validateQuantity(tx, order, product, q, 0, q); err != nil {
			return err
		}

		return s.repostIfPaid(tx, order, func() error {
			item = models.OrderItem{
				OrderID:         orderID,
				ProductID:       productID,
				Quantity:        q,
				ItemOrderedDate: s.cycle.Now(),
			}
			if err := tx.Create(&item).Error; err != nil {
				return apperr.FromDB(err)
			}
			return s.stock.Reduce(tx, productID, q, false)
		})
	})
	if err != nil {
		return nil, s.logged(err, "add order item", zap.Uint("order_id", orderID), zap.Uint("product_id", productID))
	}
	return &item, nil
}

// UpdateItem changes an item's quantity. Zero removes the item.
func (s *Service) UpdateItem(actor models.Actor, itemID uint, q decimal.Decimal) (*models.OrderItem, error) {
	if q.IsZero() {
		return nil, s.RemoveItem(actor, itemID)
	}
	if q.IsNegative() {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "quantity must not be negative")
	}

	var item models.OrderItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, itemID).Error; err != nil {
			return apperr.NotFoundAs(err, "order item")
		}
		order, err := s.lockEditable(tx, actor, item.OrderID)
		if err != nil {
			return err
		}
		if item.Quantity.Equal(q) {
			return nil
		}

		product, err := s.lockOrderable(tx, item.ProductID)
		if err != nil {
			return err
		}
		if err := s.validateQuantity(tx, order, product, q, item.ID, q.Sub(item.Quantity)); err != nil {
			return err
		}

		return s.repostIfPaid(tx, order, func() error {
			if err := s.stock.Alter(tx, item.ProductID, q, item.ID, stock.OrderItem, false); err != nil {
				return err
			}
			item.Quantity = q
			return apperr.FromDB(tx.Model(&item).Update("quantity", q).Error)
		})
	})
	if err != nil {
		return nil, s.logged(err, "update order item", zap.Uint("item_id", itemID))
	}
	return &item, nil
}

// RemoveItem deletes an item and gives its quantity back to stock.
func (s *Service) RemoveItem(actor models.Actor, itemID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var item models.OrderItem
		if err := tx.First(&item, itemID).Error; err != nil {
			return apperr.NotFoundAs(err, "order item")
		}
		order, err := s.lockEditable(tx, actor, item.OrderID)
		if err != nil {
			return err
		}

		product, err := s.stock.Lock(tx, item.ProductID)
		if err != nil {
			return err
		}
		if !actor.IsStaff() && product.DeadlinePassed(s.cycle.Now()) {
			return apperr.Rejected(apperr.ReasonDeadlinePassed, "ordering %s closed", product.Name)
		}

		return s.repostIfPaid(tx, order, func() error {
			if err := s.stock.Reduce(tx, item.ProductID, item.Quantity, true); err != nil {
				return err
			}
			return apperr.FromDB(tx.Delete(&models.OrderItem{}, item.ID).Error)
		})
	})
	return s.logged(err, "remove order item", zap.Uint("item_id", itemID))
}

// ChangePickUpDay is reserved to the order's owner while the order is unpaid.
func (s *Service) ChangePickUpDay(actor models.Actor, orderID uint, day models.PickUpDay) (*models.Order, error) {
	if !day.Valid() {
		return nil, apperr.Rejected(apperr.ReasonInvalidPickUpDay, "pick-up day %q is not offered", day)
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		o, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		if !actor.Owns(o.UserID) {
			return apperr.Forbidden("only the owner can change the pick-up day")
		}
		if o.State() == models.OrderPaid {
			return apperr.Rejected(apperr.ReasonOrderPaid, "order is already paid")
		}
		o.PickUpDay = day
		order = *o
		return apperr.FromDB(tx.Model(o).Update("pick_up_day", day).Error)
	})
	if err != nil {
		return nil, s.logged(err, "change pick-up day", zap.Uint("order_id", orderID))
	}
	return &order, nil
}

// DeleteOrder removes the order, restores stock for every item, reverses a
// recorded payment and renumbers the remaining orders of its week.
func (s *Service) DeleteOrder(actor models.Actor, orderID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.lockEditable(tx, actor, orderID)
		if err != nil {
			return err
		}

		items, err := s.items(tx, order.ID)
		if err != nil {
			return err
		}
		if order.PaidAmount.Valid {
			fund, err := s.fund(tx, order.UserID)
			if err != nil {
				return err
			}
			cost := Cost(items).Mul(fund)
			if err := s.ledger.Apply(tx, order.UserID, ledger.Delta(order.PaidAmount, decimal.NullDecimal{}, cost)); err != nil {
				return err
			}
		}

		for _, it := range items {
			if err := s.stock.Reduce(tx, it.ProductID, it.Quantity, true); err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return apperr.FromDB(err)
		}
		if err := tx.Delete(&models.Order{}, order.ID).Error; err != nil {
			return apperr.FromDB(err)
		}
		if err := s.seq.Repack(tx, s.cycle.WeekOf(order.DateCreated), order.OrderNumber); err != nil {
			return err
		}

		if actor.IsStaff() {
			return audit.WriteLog(tx, audit.LogOptions{
				Actor:       actor,
				EntityType:  "order",
				EntityID:    order.ID,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("order %d deleted", order.OrderNumber),
				Before:      order,
			})
		}
		return nil
	})
	return s.logged(err, "delete order", zap.Uint("order_id", orderID))
}

// SetPaidAmount records (or clears, with a null amount) the payment for an order and
// posts the resulting balance change. An unchanged amount is a no-op.
func (s *Service) SetPaidAmount(actor models.Actor, orderID uint, amount decimal.NullDecimal) (*models.Order, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only staff can record payments")
	}
	if amount.Valid && amount.Decimal.IsNegative() {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "paid amount must not be negative")
	}
	if amount.Valid && !amount.Decimal.Equal(amount.Decimal.Round(2)) {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "paid amount must have at most 2 decimal places")
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		o, err := s.lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		order = *o
		if samePayment(o.PaidAmount, amount) {
			return nil
		}

		items, err := s.items(tx, o.ID)
		if err != nil {
			return err
		}
		fund, err := s.fund(tx, o.UserID)
		if err != nil {
			return err
		}
		delta := ledger.Delta(o.PaidAmount, amount, Cost(items).Mul(fund))

		before := *o
		if err := tx.Model(o).Update("paid_amount", amount).Error; err != nil {
			return apperr.FromDB(err)
		}
		if err := s.ledger.Apply(tx, o.UserID, delta); err != nil {
			return err
		}
		order.PaidAmount = amount

		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "order",
			EntityID:    o.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("order %d paid amount set, balance delta %s", o.OrderNumber, delta.StringFixed(2)),
			Before:      before,
			After:       order,
		})
	})
	if err != nil {
		return nil, s.logged(err, "set paid amount", zap.Uint("order_id", orderID))
	}
	return &order, nil
}

func samePayment(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func (s *Service) SetGiven(actor models.Actor, orderID uint, given bool) error {
	if !actor.IsStaff() {
		return apperr.Forbidden("only staff can hand out boxes")
	}
	res := s.db.Model(&models.Order{}).Where("id = ?", orderID).Update("is_given", given)
	if res.Error != nil {
		return apperr.FromDB(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("order")
	}
	return nil
}

// Summary is the order detail view.
type Summary struct {
	Order       *models.Order   `json:"order"`
	Lines       []Line          `json:"lines"`
	Totals      Totals          `json:"totals"`
	UserBalance decimal.Decimal `json:"user_balance"`
}

// OrderSummary returns the order's lines and derived values; visible to its owner and staff.
func (s *Service) OrderSummary(actor models.Actor, orderID uint) (*Summary, error) {
	var order models.Order
	if err := s.db.Preload("Items.Product.Producer").First(&order, orderID).Error; err != nil {
		return nil, apperr.NotFoundAs(err, "order")
	}
	if !actor.IsStaff() && !actor.Owns(order.UserID) {
		return nil, apperr.Forbidden("not your order")
	}
	return s.summarize(s.db, &order)
}

func (s *Service) summarize(db *gorm.DB, order *models.Order) (*Summary, error) {
	fund, err := s.fund(db, order.UserID)
	if err != nil {
		return nil, err
	}
	balance, err := ledger.Balance(db, order.UserID)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Order:       order,
		Lines:       Lines(order.Items),
		Totals:      ComputeTotals(order, order.Items, fund),
		UserBalance: balance,
	}, nil
}

// WeekOrders returns every order of the week with items loaded, ordered by number.
func (s *Service) WeekOrders(week cycle.Week) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("User.Profile").Preload("Items.Product.Producer").
		Where("date_created >= ? AND date_created < ?", week.Start, week.End).
		Order("order_number").Find(&orders).Error
	return orders, apperr.FromDB(err)
}

// Fund returns the member's fund multiplier, the default when they have no profile.
func (s *Service) Fund(userID uint) (decimal.Decimal, error) {
	return s.fund(s.db, userID)
}

func (s *Service) fund(db *gorm.DB, userID uint) (decimal.Decimal, error) {
	return UserFund(db, userID, s.defaultFund)
}

// UserFund reads the member's fund, falling back to def when they have no profile.
func UserFund(db *gorm.DB, userID uint, def decimal.Decimal) (decimal.Decimal, error) {
	var profile models.UserProfile
	err := db.Select("id", "fund").Where("user_id = ?", userID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return decimal.Zero, apperr.FromDB(err)
	}
	return profile.Fund, nil
}

func (s *Service) lockOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
		return nil, apperr.NotFoundAs(err, "order")
	}
	return &order, nil
}

// lockEditable locks the order and checks the actor may change it: staff always,
// members only their own unpaid order while ordering is open.
func (s *Service) lockEditable(tx *gorm.DB, actor models.Actor, orderID uint) (*models.Order, error) {
	order, err := s.lockOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() {
		return order, nil
	}
	if !actor.Owns(order.UserID) {
		return nil, apperr.Forbidden("not your order")
	}
	if order.State() == models.OrderPaid {
		return nil, apperr.Rejected(apperr.ReasonOrderPaid, "a paid order cannot be changed")
	}
	if !s.cycle.OrderingOpen() {
		return nil, apperr.Rejected(apperr.ReasonOutsideOrderWindow, "ordering is closed")
	}
	return order, nil
}

// lockOrderable locks the product row and loads its weight schemes.
func (s *Service) lockOrderable(tx *gorm.DB, productID uint) (*models.Product, error) {
	product, err := s.stock.Lock(tx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperr.NotFound("product")
	}
	if err := tx.Model(product).Association("WeightSchemes").Find(&product.WeightSchemes); err != nil {
		return nil, apperr.FromDB(err)
	}
	return product, nil
}

// validateQuantity runs the weight-scheme, deadline, max-quantity and stock gates.
// exclude is the item being edited (0 for a new item); delta is the change in ordered quantity.
func (s *Service) validateQuantity(tx *gorm.DB, order *models.Order, p *models.Product, q decimal.Decimal, exclude uint, delta decimal.Decimal) error {
	if !p.AllowsQuantity(q) {
		return apperr.Rejected(apperr.ReasonInvalidWeightScheme, "%s cannot be ordered in quantity %s", p.Name, q)
	}
	if p.DeadlinePassed(s.cycle.Now()) {
		return apperr.Rejected(apperr.ReasonDeadlinePassed, "ordering %s closed", p.Name)
	}

	ordered, err := OrderedQuantity(tx, p.ID, s.cycle.WeekOf(order.DateCreated), exclude)
	if err != nil {
		return err
	}
	if ordered.Add(q).GreaterThan(p.OrderMaxQuantity) {
		return apperr.Rejected(apperr.ReasonMaxExceeded, "only %s of %s left to order",
			decimal.Max(p.OrderMaxQuantity.Sub(ordered), decimal.Zero), p.Name)
	}
	if p.IsStocked() && delta.IsPositive() && delta.GreaterThan(p.QuantityInStock.Decimal) {
		return apperr.Rejected(apperr.ReasonMaxExceeded, "only %s of %s in stock",
			decimal.Max(p.QuantityInStock.Decimal, decimal.Zero), p.Name)
	}
	return nil
}

// OrderedQuantity sums the week's order-item quantities for a product, skipping item exclude.
func OrderedQuantity(db *gorm.DB, productID uint, week cycle.Week, exclude uint) (decimal.Decimal, error) {
	var quantities []decimal.Decimal
	q := db.Model(&models.OrderItem{}).
		Where("product_id = ? AND item_ordered_date >= ? AND item_ordered_date < ?", productID, week.Start, week.End)
	if exclude != 0 {
		q = q.Where("id <> ?", exclude)
	}
	if err := q.Pluck("quantity", &quantities).Error; err != nil {
		return decimal.Zero, apperr.FromDB(err)
	}
	return decimal.Sum(decimal.Zero, quantities...), nil
}

func (s *Service) items(tx *gorm.DB, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := tx.Preload("Product").Where("order_id = ?", orderID).Find(&items).Error
	return items, apperr.FromDB(err)
}

// CutItem takes cut out of an order item inside tx, deleting it when nothing is left.
// The quantity goes back to stock and, when the order is already paid, the member is
// credited cut × price × fund. item must have Product and Order loaded.
func (s *Service) CutItem(tx *gorm.DB, item *models.OrderItem, cut decimal.Decimal) error {
	if err := s.stock.Reduce(tx, item.ProductID, cut, true); err != nil {
		return err
	}

	left := item.Quantity.Sub(cut)
	if left.IsPositive() {
		if err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).Update("quantity", left).Error; err != nil {
			return apperr.FromDB(err)
		}
	} else if err := tx.Delete(&models.OrderItem{}, item.ID).Error; err != nil {
		return apperr.FromDB(err)
	}
	item.Quantity = left

	if !item.Order.PaidAmount.Valid {
		return nil
	}
	fund, err := s.fund(tx, item.Order.UserID)
	if err != nil {
		return err
	}
	return s.ledger.Apply(tx, item.Order.UserID, cut.Mul(item.Product.Price).Mul(fund))
}

// WeekItemsOf loads the week's order items of the given products with Product and Order.
func WeekItemsOf(tx *gorm.DB, week cycle.Week, productIDs ...uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if len(productIDs) == 0 {
		return items, nil
	}
	err := tx.Preload("Product").Preload("Order").
		Where("product_id IN ? AND item_ordered_date >= ? AND item_ordered_date < ?", productIDs, week.Start, week.End).
		Order("item_ordered_date DESC, id DESC").Find(&items).Error
	return items, apperr.FromDB(err)
}

// repostIfPaid runs mutate and, when the order is already paid, posts the change in
// cost to the member's balance so a later un-payment reverses exactly what was charged.
func (s *Service) repostIfPaid(tx *gorm.DB, order *models.Order, mutate func() error) error {
	if !order.PaidAmount.Valid {
		return mutate()
	}

	fund, err := s.fund(tx, order.UserID)
	if err != nil {
		return err
	}
	before, err := s.items(tx, order.ID)
	if err != nil {
		return err
	}
	if err := mutate(); err != nil {
		return err
	}
	after, err := s.items(tx, order.ID)
	if err != nil {
		return err
	}
	return s.ledger.Apply(tx, order.UserID, Cost(before).Sub(Cost(after)).Mul(fund))
}

// logged records faults at error level and rejections at info level, then returns err.
func (s *Service) logged(err error, op string, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindPermissionDenied:
		s.log.Info("order book rejected request", fields...)
	default:
		s.log.Error("order book fault", fields...)
	}
	return err
}
