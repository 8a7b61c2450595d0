// Package catalog manages producers, products, weight schemes and statuses.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"koop-backend/internal/apperr"
	"koop-backend/internal/audit"
	"koop-backend/internal/cache"
	"koop-backend/internal/cycle"
	"koop-backend/internal/database"
	"koop-backend/internal/logger"
	"koop-backend/internal/models"
	"koop-backend/internal/orders"
	"koop-backend/internal/stock"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	cacheTTL          = 10 * time.Minute
	producersCacheKey = "catalog:producers"
)

func productsCacheKey(producerID uint) string {
	return fmt.Sprintf("catalog:producer:%d:products", producerID)
}

type Deps struct {
	DB     *gorm.DB
	Cycle  *cycle.Cycle
	Stock  *stock.Keeper
	Orders *orders.Service
	Cache  cache.Cache
	Log    *zap.Logger
}

type Service struct {
	db     *gorm.DB
	cycle  *cycle.Cycle
	stock  *stock.Keeper
	orders *orders.Service
	cache  cache.Cache
	log    *zap.Logger
}

func NewService(d Deps) *Service {
	c := d.Cache
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		db:     d.DB,
		cycle:  d.Cycle,
		stock:  d.Stock,
		orders: d.Orders,
		cache:  c,
		log:    logger.OrNop(d.Log),
	}
}

// -------------------------
// Reads
// -------------------------

// ListActiveProducers returns active producers by display order, then name.
func (s *Service) ListActiveProducers(ctx context.Context) ([]models.Producer, error) {
	var producers []models.Producer
	if err := s.cache.GetJSON(ctx, producersCacheKey, &producers); err == nil {
		return producers, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("catalog cache read failed", zap.String("key", producersCacheKey), zap.Error(err))
	}

	producers = nil
	err := s.db.Where("is_active = ?", true).Order("display_order, name").Find(&producers).Error
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	s.store(ctx, producersCacheKey, producers)
	return producers, nil
}

// ProducerNavigation returns the active producers before and after slug in display
// order; either is nil at the ends of the list.
func (s *Service) ProducerNavigation(ctx context.Context, slug string) (prev, next *models.Producer, err error) {
	producers, err := s.ListActiveProducers(ctx)
	if err != nil {
		return nil, nil, err
	}
	for i := range producers {
		if producers[i].Slug != slug {
			continue
		}
		if i > 0 {
			prev = &producers[i-1]
		}
		if i+1 < len(producers) {
			next = &producers[i+1]
		}
		return prev, next, nil
	}
	return nil, nil, apperr.NotFound("producer")
}

func (s *Service) ProducerBySlug(slug string) (*models.Producer, error) {
	var p models.Producer
	if err := s.db.Where("slug = ?", slug).Take(&p).Error; err != nil {
		return nil, apperr.NotFoundAs(err, "producer")
	}
	return &p, nil
}

// ListProducerProducts returns the producer's active products with weight schemes and statuses.
// Stock is always read live; orders change it without touching the cache.
func (s *Service) ListProducerProducts(ctx context.Context, producerID uint) ([]models.Product, error) {
	key := productsCacheKey(producerID)
	var products []models.Product
	if err := s.cache.GetJSON(ctx, key, &products); err == nil {
		return s.withLiveStock(producerID, products)
	} else if !errors.Is(err, cache.ErrMiss) {
		s.log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}

	products = nil
	err := s.db.
		Preload("WeightSchemes", func(db *gorm.DB) *gorm.DB { return db.Order("quantity") }).
		Preload("Statuses").
		Where("producer_id = ? AND is_active = ?", producerID, true).
		Order("name").Find(&products).Error
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	s.store(ctx, key, products)
	return products, nil
}

func (s *Service) withLiveStock(producerID uint, products []models.Product) ([]models.Product, error) {
	var rows []struct {
		ID              uint
		QuantityInStock decimal.NullDecimal
	}
	err := s.db.Model(&models.Product{}).Select("id", "quantity_in_stock").
		Where("producer_id = ?", producerID).Scan(&rows).Error
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	live := make(map[uint]decimal.NullDecimal, len(rows))
	for _, r := range rows {
		live[r.ID] = r.QuantityInStock
	}
	for i := range products {
		products[i].QuantityInStock = live[products[i].ID]
	}
	return products, nil
}

func (s *Service) store(ctx context.Context, key string, v any) {
	if err := s.cache.SetJSON(ctx, key, v, cacheTTL); err != nil {
		s.log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops the cached producer list and the product lists of the given producers.
func (s *Service) Invalidate(producerIDs ...uint) {
	keys := []string{producersCacheKey}
	for _, id := range producerIDs {
		keys = append(keys, productsCacheKey(id))
	}
	if err := s.cache.Del(context.Background(), keys...); err != nil {
		s.log.Warn("catalog cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// InvalidateAll drops every cached catalog page, for bulk loads.
func (s *Service) InvalidateAll() {
	var ids []uint
	if err := s.db.Model(&models.Producer{}).Pluck("id", &ids).Error; err != nil {
		s.log.Warn("list producers for cache invalidation", zap.Error(err))
	}
	s.Invalidate(ids...)
}

// -------------------------
// Producers
// -------------------------

type ProducerInput struct {
	Name          string     `json:"name" validate:"required,max=200"`
	Short         string     `json:"short" validate:"required,max=20"`
	Description   string     `json:"description" validate:"max=1000"`
	DisplayOrder  *int       `json:"display_order"`
	IsActive      *bool      `json:"is_active"`
	OrderDeadline *time.Time `json:"order_deadline"`
}

type ProducerPatch struct {
	Name          *string    `json:"name" validate:"omitempty,max=200"`
	Short         *string    `json:"short" validate:"omitempty,max=20"`
	Description   *string    `json:"description" validate:"omitempty,max=1000"`
	DisplayOrder  *int       `json:"display_order"`
	OrderDeadline *time.Time `json:"order_deadline"`
}

func requireStaff(actor models.Actor) error {
	if !actor.IsStaff() {
		return apperr.Forbidden("the catalog is managed by staff")
	}
	return nil
}

func (s *Service) CreateProducer(actor models.Actor, in ProducerInput) (*models.Producer, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	p := models.Producer{
		Name:         strings.TrimSpace(in.Name),
		Short:        strings.TrimSpace(in.Short),
		Description:  strings.TrimSpace(in.Description),
		DisplayOrder: 10,
		IsActive:     true,
	}
	if in.DisplayOrder != nil {
		p.DisplayOrder = *in.DisplayOrder
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.OrderDeadline != nil {
		d := in.OrderDeadline.UTC()
		p.OrderDeadline = &d
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		slug, err := uniqueSlug(tx, p.Name, 0)
		if err != nil {
			return err
		}
		p.Slug = slug
		if err := tx.Create(&p).Error; err != nil {
			return apperr.FromDB(err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "producer",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("producer %s created", p.Name),
			After:       p,
		})
	})
	if err != nil {
		return nil, s.logged(err, "create producer")
	}
	s.Invalidate()
	return &p, nil
}

// UpdateProducer applies the non-nil fields. The slug follows the name.
func (s *Service) UpdateProducer(actor models.Actor, id uint, patch ProducerPatch) (*models.Producer, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	var p models.Producer
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return apperr.NotFoundAs(err, "producer")
		}
		before := p

		if patch.Name != nil {
			p.Name = strings.TrimSpace(*patch.Name)
			slug, err := uniqueSlug(tx, p.Name, p.ID)
			if err != nil {
				return err
			}
			p.Slug = slug
		}
		if patch.Short != nil {
			p.Short = strings.TrimSpace(*patch.Short)
		}
		if patch.Description != nil {
			p.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.DisplayOrder != nil {
			p.DisplayOrder = *patch.DisplayOrder
		}
		if patch.OrderDeadline != nil {
			d := patch.OrderDeadline.UTC()
			p.OrderDeadline = &d
		}

		if err := tx.Omit("Products").Save(&p).Error; err != nil {
			return apperr.FromDB(err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "producer",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("producer %s updated", p.Name),
			Before:      before,
			After:       p,
		})
	})
	if err != nil {
		return nil, s.logged(err, "update producer", zap.Uint("producer_id", id))
	}
	s.Invalidate(id)
	return &p, nil
}

// SetProducerActive flips the producer and every one of its products together.
func (s *Service) SetProducerActive(actor models.Actor, id uint, active bool) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var p models.Producer
		if err := tx.First(&p, id).Error; err != nil {
			return apperr.NotFoundAs(err, "producer")
		}
		if err := tx.Model(&p).Update("is_active", active).Error; err != nil {
			return apperr.FromDB(err)
		}
		if err := s.stock.SwitchActive(tx, p.ID, active); err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "producer",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("producer %s active=%t", p.Name, active),
		})
	})
	if err != nil {
		return s.logged(err, "set producer active", zap.Uint("producer_id", id))
	}
	s.Invalidate(id)
	return nil
}

// DeleteProducer removes the producer with its products. This week's order items for
// those products are cut first so stock and paid balances are restored; older items,
// deliveries and join rows go with the products.
func (s *Service) DeleteProducer(actor models.Actor, id uint) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var p models.Producer
		if err := tx.First(&p, id).Error; err != nil {
			return apperr.NotFoundAs(err, "producer")
		}

		var productIDs []uint
		if err := tx.Model(&models.Product{}).Where("producer_id = ?", p.ID).Pluck("id", &productIDs).Error; err != nil {
			return apperr.FromDB(err)
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

		if len(productIDs) > 0 {
			if err := tx.Where("product_id IN ?", productIDs).Delete(&models.OrderItem{}).Error; err != nil {
				return apperr.FromDB(err)
			}
			if err := tx.Where("product_id IN ?", productIDs).Delete(&models.SupplyItem{}).Error; err != nil {
				return apperr.FromDB(err)
			}
			for _, join := range []string{"product_weight_schemes", "product_statuses"} {
				if err := tx.Exec("DELETE FROM "+join+" WHERE product_id IN ?", productIDs).Error; err != nil {
					return apperr.FromDB(err)
				}
			}
			if err := tx.Where("id IN ?", productIDs).Delete(&models.Product{}).Error; err != nil {
				return apperr.FromDB(err)
			}
		}

		var supplyIDs []uint
		if err := tx.Model(&models.Supply{}).Where("producer_id = ?", p.ID).Pluck("id", &supplyIDs).Error; err != nil {
			return apperr.FromDB(err)
		}
		if len(supplyIDs) > 0 {
			if err := tx.Where("supply_id IN ?", supplyIDs).Delete(&models.SupplyItem{}).Error; err != nil {
				return apperr.FromDB(err)
			}
			if err := tx.Where("id IN ?", supplyIDs).Delete(&models.Supply{}).Error; err != nil {
				return apperr.FromDB(err)
			}
		}

		if err := tx.Delete(&models.Producer{}, p.ID).Error; err != nil {
			return apperr.FromDB(err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "producer",
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("producer %s deleted with %d products, %d current order items cut", p.Name, len(productIDs), len(items)),
			Before:      p,
		})
	})
	if err != nil {
		return s.logged(err, "delete producer", zap.Uint("producer_id", id))
	}
	s.Invalidate(id)
	return nil
}

// uniqueSlug slugifies name, appending -2, -3, ... while another producer holds the slug.
func uniqueSlug(tx *gorm.DB, name string, selfID uint) (string, error) {
	base := Slugify(name)
	if base == "" {
		return "", apperr.Rejected(apperr.ReasonInvalidInput, "name %q gives an empty slug", name)
	}
	slug := base
	for n := 2; ; n++ {
		var count int64
		if err := tx.Model(&models.Producer{}).Where("slug = ? AND id <> ?", slug, selfID).Count(&count).Error; err != nil {
			return "", apperr.FromDB(err)
		}
		if count == 0 {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

// -------------------------
// Products
// -------------------------

type ProductInput struct {
	ProducerID       uint                `json:"producer_id" validate:"required"`
	Name             string              `json:"name" validate:"required,max=200"`
	Description      string              `json:"description" validate:"max=1000"`
	Price            decimal.Decimal     `json:"price"`
	OrderMaxQuantity decimal.NullDecimal `json:"order_max_quantity"`
	QuantityInStock  decimal.NullDecimal `json:"quantity_in_stock"`
	OrderDeadline    *time.Time          `json:"order_deadline"`
	WeightSchemes    []decimal.Decimal   `json:"weight_schemes"`
}

type ProductPatch struct {
	Name             *string              `json:"name" validate:"omitempty,max=200"`
	Description      *string              `json:"description" validate:"omitempty,max=1000"`
	Price            *decimal.Decimal     `json:"price"`
	OrderMaxQuantity *decimal.Decimal     `json:"order_max_quantity"`
	QuantityInStock  *decimal.NullDecimal `json:"quantity_in_stock"`
	OrderDeadline    *time.Time           `json:"order_deadline"`
	ClearDeadline    bool                 `json:"clear_deadline"`
	IsActive         *bool                `json:"is_active"`
}

// CreateProduct adds an active product. The zero weight scheme is always attached.
func (s *Service) CreateProduct(actor models.Actor, in ProductInput) (*models.Product, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "price must not be negative")
	}

	p := models.Product{
		ProducerID:       in.ProducerID,
		Name:             strings.TrimSpace(in.Name),
		Description:      strings.TrimSpace(in.Description),
		Price:            in.Price,
		OrderMaxQuantity: models.DefaultOrderMaxQuantity,
		QuantityInStock:  in.QuantityInStock,
		IsActive:         true,
	}
	if in.OrderMaxQuantity.Valid {
		p.OrderMaxQuantity = in.OrderMaxQuantity.Decimal
	}
	if in.OrderDeadline != nil {
		d := in.OrderDeadline.UTC()
		p.OrderDeadline = &d
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var producer models.Producer
		if err := tx.First(&producer, in.ProducerID).Error; err != nil {
			return apperr.NotFoundAs(err, "producer")
		}
		p.IsActive = producer.IsActive

		schemes, err := schemesFor(tx, in.WeightSchemes)
		if err != nil {
			return err
		}
		if err := tx.Omit("WeightSchemes", "Statuses").Create(&p).Error; err != nil {
			return apperr.FromDB(err)
		}
		if err := tx.Model(&p).Association("WeightSchemes").Replace(schemes); err != nil {
			return apperr.FromDB(err)
		}
		p.WeightSchemes = schemes
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("product %s created", p.Name),
			After:       p,
		})
	})
	if err != nil {
		return nil, s.logged(err, "create product")
	}
	s.Invalidate(p.ProducerID)
	return &p, nil
}

// UpdateProduct applies the non-nil fields. Stock corrections go through the stock keeper.
func (s *Service) UpdateProduct(actor models.Actor, id uint, patch ProductPatch) (*models.Product, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "price must not be negative")
	}

	var p models.Product
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return apperr.NotFoundAs(err, "product")
		}
		before := p

		updates := map[string]any{}
		if patch.Name != nil {
			updates["name"] = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			updates["description"] = strings.TrimSpace(*patch.Description)
		}
		if patch.Price != nil {
			updates["price"] = *patch.Price
		}
		if patch.OrderMaxQuantity != nil {
			updates["order_max_quantity"] = *patch.OrderMaxQuantity
		}
		switch {
		case patch.ClearDeadline:
			updates["order_deadline"] = nil
		case patch.OrderDeadline != nil:
			updates["order_deadline"] = patch.OrderDeadline.UTC()
		}
		if patch.IsActive != nil {
			updates["is_active"] = *patch.IsActive
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).Updates(updates).Error; err != nil {
				return apperr.FromDB(err)
			}
		}
		if patch.QuantityInStock != nil {
			if err := s.stock.SetStock(tx, p.ID, *patch.QuantityInStock); err != nil {
				return err
			}
		}

		if err := tx.First(&p, id).Error; err != nil {
			return apperr.FromDB(err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("product %s updated", p.Name),
			Before:      before,
			After:       p,
		})
	})
	if err != nil {
		return nil, s.logged(err, "update product", zap.Uint("product_id", id))
	}
	s.Invalidate(p.ProducerID)
	return &p, nil
}

// SetProductWeightSchemes replaces the product's allowed quantities. Zero is always kept.
func (s *Service) SetProductWeightSchemes(actor models.Actor, productID uint, quantities []decimal.Decimal) ([]models.WeightScheme, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	var schemes []models.WeightScheme
	var producerID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, productID).Error; err != nil {
			return apperr.NotFoundAs(err, "product")
		}
		producerID = p.ProducerID

		var err error
		schemes, err = schemesFor(tx, quantities)
		if err != nil {
			return err
		}
		return apperr.FromDB(tx.Model(&p).Association("WeightSchemes").Replace(schemes))
	})
	if err != nil {
		return nil, s.logged(err, "set weight schemes", zap.Uint("product_id", productID))
	}
	s.Invalidate(producerID)
	return schemes, nil
}

// schemesFor resolves quantities to weight-scheme rows, creating missing ones, with zero first.
func schemesFor(tx *gorm.DB, quantities []decimal.Decimal) ([]models.WeightScheme, error) {
	zero, err := database.ZeroWeightScheme(tx)
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	out := []models.WeightScheme{zero}
	seen := map[string]bool{"0": true}
	for _, q := range quantities {
		if q.IsNegative() {
			return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "weight scheme %s must not be negative", q)
		}
		if seen[q.String()] {
			continue
		}
		seen[q.String()] = true
		ws, err := findOrCreateScheme(tx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}

func findOrCreateScheme(tx *gorm.DB, q decimal.Decimal) (models.WeightScheme, error) {
	var ws models.WeightScheme
	err := tx.Where("quantity = ?", q).Attrs(models.WeightScheme{Quantity: q}).FirstOrCreate(&ws).Error
	return ws, apperr.FromDB(err)
}

func (s *Service) CreateWeightScheme(actor models.Actor, q decimal.Decimal) (*models.WeightScheme, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if q.IsNegative() {
		return nil, apperr.Rejected(apperr.ReasonInvalidQuantity, "weight scheme must not be negative")
	}
	ws, err := findOrCreateScheme(s.db, q)
	if err != nil {
		return nil, s.logged(err, "create weight scheme")
	}
	return &ws, nil
}

func (s *Service) ListWeightSchemes() ([]models.WeightScheme, error) {
	var out []models.WeightScheme
	err := s.db.Order("quantity").Find(&out).Error
	return out, apperr.FromDB(err)
}

func (s *Service) CreateStatus(actor models.Actor, statusType, desc string) (*models.Status, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	st := models.Status{StatusType: strings.TrimSpace(statusType), Desc: strings.TrimSpace(desc)}
	if st.StatusType == "" {
		return nil, apperr.Rejected(apperr.ReasonInvalidInput, "status type is required")
	}
	if err := s.db.Create(&st).Error; err != nil {
		return nil, s.logged(apperr.FromDB(err), "create status")
	}
	return &st, nil
}

// SetProductStatuses replaces the statuses shown on a product.
func (s *Service) SetProductStatuses(actor models.Actor, productID uint, statusIDs []uint) error {
	if err := requireStaff(actor); err != nil {
		return err
	}
	var producerID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.First(&p, productID).Error; err != nil {
			return apperr.NotFoundAs(err, "product")
		}
		producerID = p.ProducerID

		var statuses []models.Status
		if len(statusIDs) > 0 {
			if err := tx.Where("id IN ?", statusIDs).Find(&statuses).Error; err != nil {
				return apperr.FromDB(err)
			}
			if len(statuses) != len(statusIDs) {
				return apperr.NotFound("status")
			}
		}
		assoc := tx.Model(&p).Association("Statuses")
		if len(statuses) == 0 {
			return apperr.FromDB(assoc.Clear())
		}
		return apperr.FromDB(assoc.Replace(statuses))
	})
	if err != nil {
		return s.logged(err, "set product statuses", zap.Uint("product_id", productID))
	}
	s.Invalidate(producerID)
	return nil
}

func (s *Service) logged(err error, op string, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindPermissionDenied:
		s.log.Info("catalog rejected request", fields...)
	default:
		s.log.Error("catalog fault", fields...)
	}
	return err
}
