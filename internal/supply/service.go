// Package supply ingests producer deliveries and applies them to stock.
package supply

import (
	"fmt"
	"sort"

	"koop-backend/internal/apperr"
	"koop-backend/internal/audit"
	"koop-backend/internal/cycle"
	"koop-backend/internal/logger"
	"koop-backend/internal/models"
	"koop-backend/internal/orders"
	"koop-backend/internal/stock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Invalidator drops cached catalog pages of the given producers.
type Invalidator interface {
	Invalidate(producerIDs ...uint)
}

type noInvalidate struct{}

func (noInvalidate) Invalidate(...uint) {}

type Deps struct {
	DB     *gorm.DB
	Cycle  *cycle.Cycle
	Stock  *stock.Keeper
	Orders *orders.Service
	Cache  Invalidator // optional
	Log    *zap.Logger
}

type Service struct {
	db     *gorm.DB
	cycle  *cycle.Cycle
	stock  *stock.Keeper
	orders *orders.Service
	cache  Invalidator
	log    *zap.Logger
}

func NewService(d Deps) *Service {
	var cache Invalidator = noInvalidate{}
	if d.Cache != nil {
		cache = d.Cache
	}
	return &Service{
		db:     d.DB,
		cycle:  d.Cycle,
		stock:  d.Stock,
		orders: d.Orders,
		cache:  cache,
		log:    logger.OrNop(d.Log),
	}
}

func requireStaff(actor models.Actor) error {
	if !actor.IsStaff() {
		return apperr.Forbidden("deliveries are managed by staff")
	}
	return nil
}

// CreateSupply opens this week's delivery for a producer. A producer has at most one per week.
func (s *Service) CreateSupply(actor models.Actor, producerID uint) (*models.Supply, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	var sup models.Supply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		created, err := s.createSupply(tx, actor, producerID)
		if err != nil {
			return err
		}
		sup = *created
		return nil
	})
	if err != nil {
		return nil, s.logged(err, "create supply", zap.Uint("producer_id", producerID))
	}
	return &sup, nil
}

func (s *Service) createSupply(tx *gorm.DB, actor models.Actor, producerID uint) (*models.Supply, error) {
	var producer models.Producer
	// the producer row lock serializes concurrent creates for the same producer
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&producer, producerID).Error; err != nil {
		return nil, apperr.NotFoundAs(err, "producer")
	}

	week := s.cycle.CurrentWeek()
	var existing int64
	err := tx.Model(&models.Supply{}).
		Where("producer_id = ? AND date_created >= ? AND date_created < ?", producerID, week.Start, week.End).
		Count(&existing).Error
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	if existing > 0 {
		return nil, apperr.Rejected(apperr.ReasonSupplyAlreadyExists, "%s already has a delivery this week", producer.Short)
	}

	sup := models.Supply{UserID: actor.UserID, ProducerID: producerID, DateCreated: s.cycle.Now()}
	if err := tx.Create(&sup).Error; err != nil {
		return nil, apperr.FromDB(err)
	}
	if err := audit.WriteLog(tx, audit.LogOptions{
		Actor:       actor,
		EntityType:  "supply",
		EntityID:    sup.ID,
		Action:      models.AuditActionCreate,
		Description: fmt.Sprintf("delivery from %s", producer.Short),
		After:       sup,
	}); err != nil {
		return nil, err
	}
	return &sup, nil
}

// CreateSupplyFromOrders opens the producer's delivery prefilled with this week's ordered
// quantity of every product that does not keep stock.
func (s *Service) CreateSupplyFromOrders(actor models.Actor, producerID uint) (*models.Supply, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	var sup *models.Supply
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		sup, err = s.createSupply(tx, actor, producerID)
		if err != nil {
			return err
		}

		var products []models.Product
		if err := tx.Where("producer_id = ? AND quantity_in_stock IS NULL", producerID).Order("name").Find(&products).Error; err != nil {
			return apperr.FromDB(err)
		}
		week := s.cycle.CurrentWeek()
		for _, p := range products {
			ordered, err := orders.OrderedQuantity(tx, p.ID, week, 0)
			if err != nil {
				return err
			}
			if !ordered.IsPositive() {
				continue
			}
			item, err := s.addItem(tx, sup, p.ID, ordered)
			if err != nil {
				return err
			}
			sup.Items = append(sup.Items, *item)
		}
		return nil
	})
	if err != nil {
		return nil, s.logged(err, "create supply from orders", zap.Uint("producer_id", producerID))
	}
	return sup, nil
}

// ItemInput is one line of the delivery form.
type ItemInput struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type ItemResult struct {
	ProductID uint
	Item      *models.SupplyItem
	Err       error
}

// AddSupplyItems adds every non-zero line in its own transaction.
func (s *Service) AddSupplyItems(actor models.Actor, supplyID uint, lines []ItemInput) []ItemResult {
	results := make([]ItemResult, 0, len(lines))
	for _, line := range lines {
		if line.Quantity.IsZero() {
			continue
		}
		item, err := s.AddSupplyItem(actor, supplyID, line.ProductID, line.Quantity)
		results = append(results, ItemResult{ProductID: line.ProductID, Item: item, Err: err})
	}
	return results
}

// AddSupplyItem records a delivered product and adds its quantity to stock.
func (s *Service) AddSupplyItem(actor models.Actor, supplyID, productID uint, q decimal.Decimal) (*models.SupplyItem, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if !q.IsPositive() {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "quantity must be positive")
	}

	var item *models.SupplyItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sup models.Supply
		if err := tx.First(&sup, supplyID).Error; err != nil {
			return apperr.NotFoundAs(err, "supply")
		}
		var err error
		item, err = s.addItem(tx, &sup, productID, q)
		return err
	})
	if err != nil {
		return nil, s.logged(err, "add supply item", zap.Uint("supply_id", supplyID), zap.Uint("product_id", productID))
	}
	return item, nil
}

func (s *Service) addItem(tx *gorm.DB, sup *models.Supply, productID uint, q decimal.Decimal) (*models.SupplyItem, error) {
	product, err := s.stock.Lock(tx, productID)
	if err != nil {
		return nil, err
	}
	if product.ProducerID != sup.ProducerID {
		return nil, apperr.Rejected(apperr.ReasonWrongProducer, "%s is not delivered by this producer", product.Name)
	}

	week := s.cycle.CurrentWeek()
	var delivered int64
	err = tx.Model(&models.SupplyItem{}).
		Where("product_id = ? AND date_created >= ? AND date_created < ?", productID, week.Start, week.End).
		Count(&delivered).Error
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	if delivered > 0 {
		return nil, apperr.Rejected(apperr.ReasonProductAlreadyInSupply, "%s is already in this week's delivery", product.Name)
	}

	item := models.SupplyItem{SupplyID: sup.ID, ProductID: productID, Quantity: q, DateCreated: s.cycle.Now()}
	if err := tx.Create(&item).Error; err != nil {
		return nil, apperr.FromDB(err)
	}
	if err := s.stock.Reduce(tx, productID, q, true); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateSupplyItem changes a delivered quantity. Zero removes the line.
func (s *Service) UpdateSupplyItem(actor models.Actor, itemID uint, q decimal.Decimal) (*models.SupplyItem, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if q.IsZero() {
		return nil, s.DeleteSupplyItem(actor, itemID)
	}
	if q.IsNegative() {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "quantity must not be negative")
	}

	var item models.SupplyItem
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, itemID).Error; err != nil {
			return apperr.NotFoundAs(err, "supply item")
		}
		if err := s.stock.Alter(tx, item.ProductID, q, item.ID, stock.SupplyItem, true); err != nil {
			return err
		}
		item.Quantity = q
		return apperr.FromDB(tx.Model(&item).Update("quantity", q).Error)
	})
	if err != nil {
		return nil, s.logged(err, "update supply item", zap.Uint("item_id", itemID))
	}
	return &item, nil
}

// DeleteSupplyItem removes a delivered line and takes its quantity back out of stock.
func (s *Service) DeleteSupplyItem(actor models.Actor, itemID uint) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var item models.SupplyItem
		if err := tx.First(&item, itemID).Error; err != nil {
			return apperr.NotFoundAs(err, "supply item")
		}
		if err := s.stock.Reduce(tx, item.ProductID, item.Quantity, false); err != nil {
			return err
		}
		return apperr.FromDB(tx.Delete(&models.SupplyItem{}, item.ID).Error)
	})
	return s.logged(err, "delete supply item", zap.Uint("item_id", itemID))
}

// DeleteSupply removes a delivery with all its lines, reversing their stock.
func (s *Service) DeleteSupply(actor models.Actor, supplyID uint) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sup models.Supply
		if err := tx.Preload("Items").First(&sup, supplyID).Error; err != nil {
			return apperr.NotFoundAs(err, "supply")
		}
		for _, it := range sup.Items {
			if err := s.stock.Reduce(tx, it.ProductID, it.Quantity, false); err != nil {
				return err
			}
		}
		if err := tx.Where("supply_id = ?", sup.ID).Delete(&models.SupplyItem{}).Error; err != nil {
			return apperr.FromDB(err)
		}
		if err := tx.Delete(&models.Supply{}, sup.ID).Error; err != nil {
			return apperr.FromDB(err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "supply",
			EntityID:    sup.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("delivery %d deleted with %d items", sup.ID, len(sup.Items)),
			Before:      sup,
		})
	})
	return s.logged(err, "delete supply", zap.Uint("supply_id", supplyID))
}

// ProducerDidNotArrive voids every order item of the producer's products placed this week,
// returning their quantities to stock. It returns the number of removed items.
func (s *Service) ProducerDidNotArrive(actor models.Actor, producerID uint) (int, error) {
	if err := requireStaff(actor); err != nil {
		return 0, err
	}

	removed := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var producer models.Producer
		if err := tx.First(&producer, producerID).Error; err != nil {
			return apperr.NotFoundAs(err, "producer")
		}

		var productIDs []uint
		if err := tx.Model(&models.Product{}).Where("producer_id = ?", producerID).Pluck("id", &productIDs).Error; err != nil {
			return apperr.FromDB(err)
		}
		if len(productIDs) == 0 {
			return nil
		}

		items, err := orders.WeekItemsOf(tx, s.cycle.CurrentWeek(), productIDs...)
		if err != nil {
			return err
		}

		for i := range items {
			if err := s.orders.CutItem(tx, &items[i], items[i].Quantity); err != nil {
				return err
			}
		}
		removed = len(items)

		if err := s.stock.SetToZero(tx, productIDs...); err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "producer",
			EntityID:    producer.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("%s did not arrive, %d order items removed", producer.Short, removed),
		})
	})
	if err != nil {
		return 0, s.logged(err, "producer did not arrive", zap.Uint("producer_id", producerID))
	}
	s.cache.Invalidate(producerID)
	return removed, nil
}

// RecordDelivery stores the quantity of a product that actually arrived this week. When
// less arrived than was ordered, the newest order items are cut until the orders fit.
// It returns the order items that were shortened or removed.
func (s *Service) RecordDelivery(actor models.Actor, productID uint, q decimal.Decimal) ([]models.OrderItem, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if q.IsNegative() {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "delivered quantity must not be negative")
	}

	var (
		trimmed    []models.OrderItem
		producerID uint
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		product, err := s.stock.Lock(tx, productID)
		if err != nil {
			return err
		}
		producerID = product.ProducerID
		err = tx.Model(&models.Product{}).Where("id = ?", productID).
			Update("quantity_delivered_this_week", decimal.NewNullDecimal(q)).Error
		if err != nil {
			return apperr.FromDB(err)
		}

		items, err := orders.WeekItemsOf(tx, s.cycle.CurrentWeek(), productID)
		if err != nil {
			return err
		}

		ordered := decimal.Zero
		for _, it := range items {
			ordered = ordered.Add(it.Quantity)
		}
		excess := ordered.Sub(q)
		for i := 0; i < len(items) && excess.IsPositive(); i++ {
			cut := decimal.Min(items[i].Quantity, excess)
			if err := s.orders.CutItem(tx, &items[i], cut); err != nil {
				return err
			}
			excess = excess.Sub(cut)
			trimmed = append(trimmed, items[i])
		}
		return nil
	})
	if err != nil {
		return nil, s.logged(err, "record delivery", zap.Uint("product_id", productID))
	}
	s.cache.Invalidate(producerID)
	return trimmed, nil
}

// ListWeekSupplies returns the week's deliveries with items, sorted by producer short.
func (s *Service) ListWeekSupplies(week cycle.Week) ([]models.Supply, error) {
	var supplies []models.Supply
	err := s.db.Preload("Producer").Preload("Items.Product").
		Where("date_created >= ? AND date_created < ?", week.Start, week.End).
		Find(&supplies).Error
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	sort.SliceStable(supplies, func(i, j int) bool {
		return supplies[i].Producer.Short < supplies[j].Producer.Short
	})
	return supplies, nil
}

func (s *Service) logged(err error, op string, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindPermissionDenied:
		s.log.Info("delivery rejected", fields...)
	default:
		s.log.Error("delivery fault", fields...)
	}
	return err
}
