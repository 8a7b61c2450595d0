// Package report aggregates a week of orders and deliveries into the packing,
// member and finance reports.
package report

import (
	"sort"

	"koop-backend/internal/appconfig"
	"koop-backend/internal/apperr"
	"koop-backend/internal/cycle"
	"koop-backend/internal/logger"
	"koop-backend/internal/models"
	"koop-backend/internal/orders"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Reporter struct {
	db          *gorm.DB
	cycle       *cycle.Cycle
	defaultFund decimal.Decimal
	log         *zap.Logger
}

func New(db *gorm.DB, c *cycle.Cycle, defaultFund decimal.Decimal, log *zap.Logger) *Reporter {
	if defaultFund.IsZero() {
		defaultFund = models.FundDefault
	}
	return &Reporter{db: db, cycle: c, defaultFund: defaultFund, log: logger.OrNop(log)}
}

// Week is the week reports cover; AppConfig can pin it to an earlier one.
func (r *Reporter) Week() (cycle.Week, error) {
	return appconfig.ReportWeek(r.db, r.cycle)
}

// Box is one (order number, quantity) pair in a packing list.
type Box struct {
	OrderNumber int             `json:"order_number"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// ProductBoxes is a product's packing line: how much was ordered and into which boxes.
type ProductBoxes struct {
	ProductID         uint                `json:"product_id"`
	ProducerShort     string              `json:"producer_short"`
	ProductName       string              `json:"product_name"`
	Ordered           decimal.Decimal     `json:"ordered"`
	Delivered         decimal.NullDecimal `json:"delivered"`
	StockBeforeOrders decimal.NullDecimal `json:"stock_before_orders"` // null when the product keeps no stock
	Boxes             []Box               `json:"boxes"`
}

// ProducerBox lists the producer's products ordered this week with their boxes.
func (r *Reporter) ProducerBox(week cycle.Week, producerID uint) ([]ProductBoxes, error) {
	items, err := r.weekItems(week, func(q *gorm.DB) *gorm.DB {
		return q.Where("product_id IN (?)", r.db.Model(&models.Product{}).Select("id").Where("producer_id = ?", producerID))
	})
	if err != nil {
		return nil, err
	}
	return groupBoxes(items), nil
}

// MassBox is the packing list across every producer.
func (r *Reporter) MassBox(week cycle.Week) ([]ProductBoxes, error) {
	items, err := r.weekItems(week, nil)
	if err != nil {
		return nil, err
	}
	return groupBoxes(items), nil
}

func groupBoxes(items []models.OrderItem) []ProductBoxes {
	byProduct := map[uint]*ProductBoxes{}
	for _, it := range items {
		pb, ok := byProduct[it.ProductID]
		if !ok {
			pb = &ProductBoxes{
				ProductID:     it.ProductID,
				ProducerShort: it.Product.Producer.Short,
				ProductName:   it.Product.Name,
				Ordered:       decimal.Zero,
				Delivered:     it.Product.QuantityDeliveredThisWeek,
			}
			byProduct[it.ProductID] = pb
		}
		pb.Ordered = pb.Ordered.Add(it.Quantity)
		pb.Boxes = append(pb.Boxes, Box{OrderNumber: it.Order.OrderNumber, Quantity: it.Quantity})
	}

	out := make([]ProductBoxes, 0, len(byProduct))
	for _, it := range items {
		pb, ok := byProduct[it.ProductID]
		if !ok {
			continue
		}
		delete(byProduct, it.ProductID)
		if it.Product.IsStocked() {
			pb.StockBeforeOrders = decimal.NewNullDecimal(it.Product.QuantityInStock.Decimal.Add(pb.Ordered))
		}
		sort.Slice(pb.Boxes, func(i, j int) bool { return pb.Boxes[i].OrderNumber < pb.Boxes[j].OrderNumber })
		out = append(out, *pb)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProducerShort != out[j].ProducerShort {
			return out[i].ProducerShort < out[j].ProducerShort
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out
}

type ProductIncome struct {
	ProductName string          `json:"product_name"`
	Ordered     decimal.Decimal `json:"ordered"`
	Income      decimal.Decimal `json:"income"`
}

type ProducerProductsReport struct {
	Producer models.Producer `json:"producer"`
	Products []ProductIncome `json:"products"`
	Total    decimal.Decimal `json:"total"`
}

// ProducerProducts lists every product of the producer with this week's ordered
// quantity and income, including products nobody ordered.
func (r *Reporter) ProducerProducts(week cycle.Week, producerID uint) (*ProducerProductsReport, error) {
	var producer models.Producer
	if err := r.db.Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		First(&producer, producerID).Error; err != nil {
		return nil, apperr.NotFoundAs(err, "producer")
	}

	ordered, err := r.orderedByProduct(week)
	if err != nil {
		return nil, err
	}

	rep := &ProducerProductsReport{Producer: producer, Total: decimal.Zero}
	for _, p := range producer.Products {
		q := ordered[p.ID]
		income := q.Mul(p.Price)
		rep.Products = append(rep.Products, ProductIncome{ProductName: p.Name, Ordered: q, Income: income})
		rep.Total = rep.Total.Add(income)
	}
	rep.Producer.Products = nil
	return rep, nil
}

type ProducerFinance struct {
	ProducerID    uint            `json:"producer_id"`
	Short         string          `json:"short"`
	Name          string          `json:"name"`
	OrderedTotal  decimal.Decimal `json:"ordered_total"`
	SuppliedTotal decimal.Decimal `json:"supplied_total"`
}

// ProducersFinance sums ordered and delivered value per active producer.
// Producers with nothing ordered and nothing delivered are left out.
func (r *Reporter) ProducersFinance(week cycle.Week) ([]ProducerFinance, error) {
	var producers []models.Producer
	if err := r.db.Preload("Products").Where("is_active = ?", true).Order("short, name").Find(&producers).Error; err != nil {
		return nil, apperr.FromDB(err)
	}
	ordered, err := r.orderedByProduct(week)
	if err != nil {
		return nil, err
	}
	supplied, err := r.suppliedByProduct(week)
	if err != nil {
		return nil, err
	}

	var out []ProducerFinance
	for _, pr := range producers {
		row := ProducerFinance{ProducerID: pr.ID, Short: pr.Short, Name: pr.Name, OrderedTotal: decimal.Zero, SuppliedTotal: decimal.Zero}
		for _, p := range pr.Products {
			row.OrderedTotal = row.OrderedTotal.Add(ordered[p.ID].Mul(p.Price))
			row.SuppliedTotal = row.SuppliedTotal.Add(supplied[p.ID].Mul(p.Price))
		}
		if row.OrderedTotal.IsZero() && row.SuppliedTotal.IsZero() {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// MemberBoxReport is one member's pick slip.
type MemberBoxReport struct {
	OrderID      uint             `json:"order_id"`
	OrderNumber  int              `json:"order_number"`
	MemberName   string           `json:"member_name"`
	PickUpDay    models.PickUpDay `json:"pick_up_day"`
	Fund         decimal.Decimal  `json:"fund"`
	Cost         decimal.Decimal  `json:"order_cost"`
	CostWithFund decimal.Decimal  `json:"order_cost_with_fund"`
	Lines        []orders.Line    `json:"lines"`
}

// MemberBox builds the pick slip of one order.
func (r *Reporter) MemberBox(orderID uint) (*MemberBoxReport, error) {
	var order models.Order
	err := r.db.Preload("User.Profile").Preload("Items.Product.Producer").First(&order, orderID).Error
	if err != nil {
		return nil, apperr.NotFoundAs(err, "order")
	}
	box := r.memberBox(&order)
	return &box, nil
}

// MemberBoxes builds the pick slips of every order of the week, by order number.
func (r *Reporter) MemberBoxes(week cycle.Week) ([]MemberBoxReport, error) {
	weekOrders, err := r.weekOrders(week)
	if err != nil {
		return nil, err
	}
	out := make([]MemberBoxReport, 0, len(weekOrders))
	for i := range weekOrders {
		out = append(out, r.memberBox(&weekOrders[i]))
	}
	return out, nil
}

func (r *Reporter) memberBox(order *models.Order) MemberBoxReport {
	fund := r.fundOf(&order.User)
	totals := orders.ComputeTotals(order, order.Items, fund)
	return MemberBoxReport{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		MemberName:   order.User.FullName(),
		PickUpDay:    order.PickUpDay,
		Fund:         fund,
		Cost:         totals.Cost,
		CostWithFund: totals.CostWithFund,
		Lines:        orders.Lines(order.Items),
	}
}

type MemberRow struct {
	Name        string           `json:"name"`
	OrderNumber int              `json:"order_number"`
	PickUpDay   models.PickUpDay `json:"pick_up_day"`
	PhoneNumber string           `json:"phone_number"`
}

// MembersReport lists the members with an order this week, by order number.
func (r *Reporter) MembersReport(week cycle.Week) ([]MemberRow, error) {
	weekOrders, err := r.weekOrders(week)
	if err != nil {
		return nil, err
	}
	out := make([]MemberRow, 0, len(weekOrders))
	for _, o := range weekOrders {
		row := MemberRow{Name: o.User.FullName(), OrderNumber: o.OrderNumber, PickUpDay: o.PickUpDay}
		if o.User.Profile != nil {
			row.PhoneNumber = o.User.Profile.PhoneNumber
		}
		out = append(out, row)
	}
	return out, nil
}

type MemberFinance struct {
	UserID       uint            `json:"user_id"`
	Name         string          `json:"name"`
	KoopID       *uint           `json:"koop_id"`
	Email        string          `json:"email"`
	OrderNumber  int             `json:"order_number"`
	Cost         decimal.Decimal `json:"order_cost"`
	Fund         decimal.Decimal `json:"fund"`
	CostWithFund decimal.Decimal `json:"order_cost_with_fund"`
}

// MembersFinance lists what every member with an order this week owes.
func (r *Reporter) MembersFinance(week cycle.Week) ([]MemberFinance, error) {
	weekOrders, err := r.weekOrders(week)
	if err != nil {
		return nil, err
	}
	out := make([]MemberFinance, 0, len(weekOrders))
	for i := range weekOrders {
		o := &weekOrders[i]
		fund := r.fundOf(&o.User)
		totals := orders.ComputeTotals(o, o.Items, fund)
		row := MemberFinance{
			UserID:       o.UserID,
			Name:         o.User.FullName(),
			Email:        o.User.Email,
			OrderNumber:  o.OrderNumber,
			Cost:         totals.Cost,
			Fund:         fund,
			CostWithFund: totals.CostWithFund,
		}
		if o.User.Profile != nil {
			row.KoopID = o.User.Profile.KoopID
		}
		out = append(out, row)
	}
	return out, nil
}

type ExcessRow struct {
	ProductID     uint            `json:"product_id"`
	ProducerShort string          `json:"producer_short"`
	ProductName   string          `json:"product_name"`
	Supplied      decimal.Decimal `json:"supplied"`
	Ordered       decimal.Decimal `json:"ordered"`
	Excess        decimal.Decimal `json:"excess"`
}

// ExcessInventory lists products without a stock counter that were delivered this
// week in a larger quantity than was ordered.
func (r *Reporter) ExcessInventory(week cycle.Week) ([]ExcessRow, error) {
	supplied, err := r.suppliedByProduct(week)
	if err != nil {
		return nil, err
	}
	if len(supplied) == 0 {
		return nil, nil
	}
	ordered, err := r.orderedByProduct(week)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(supplied))
	for id := range supplied {
		ids = append(ids, id)
	}
	var products []models.Product
	if err := r.db.Preload("Producer").Where("id IN ? AND quantity_in_stock IS NULL", ids).Find(&products).Error; err != nil {
		return nil, apperr.FromDB(err)
	}

	var out []ExcessRow
	for _, p := range products {
		excess := supplied[p.ID].Sub(ordered[p.ID])
		if !excess.IsPositive() {
			continue
		}
		out = append(out, ExcessRow{
			ProductID:     p.ID,
			ProducerShort: p.Producer.Short,
			ProductName:   p.Name,
			Supplied:      supplied[p.ID],
			Ordered:       ordered[p.ID],
			Excess:        excess,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProducerShort != out[j].ProducerShort {
			return out[i].ProducerShort < out[j].ProducerShort
		}
		return out[i].ProductName < out[j].ProductName
	})
	return out, nil
}

// -------------------------
// loaders
// -------------------------

func (r *Reporter) weekItems(week cycle.Week, scope func(*gorm.DB) *gorm.DB) ([]models.OrderItem, error) {
	q := r.db.Preload("Order").Preload("Product.Producer").
		Where("item_ordered_date >= ? AND item_ordered_date < ?", week.Start, week.End)
	if scope != nil {
		q = scope(q)
	}
	var items []models.OrderItem
	if err := q.Order("id").Find(&items).Error; err != nil {
		return nil, apperr.FromDB(err)
	}
	return items, nil
}

func (r *Reporter) weekOrders(week cycle.Week) ([]models.Order, error) {
	var out []models.Order
	err := r.db.Preload("User.Profile").Preload("Items.Product.Producer").
		Where("date_created >= ? AND date_created < ?", week.Start, week.End).
		Order("order_number").Find(&out).Error
	return out, apperr.FromDB(err)
}

func (r *Reporter) orderedByProduct(week cycle.Week) (map[uint]decimal.Decimal, error) {
	var rows []models.OrderItem
	err := r.db.Select("product_id", "quantity").
		Where("item_ordered_date >= ? AND item_ordered_date < ?", week.Start, week.End).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	out := map[uint]decimal.Decimal{}
	for _, row := range rows {
		out[row.ProductID] = out[row.ProductID].Add(row.Quantity)
	}
	return out, nil
}

func (r *Reporter) suppliedByProduct(week cycle.Week) (map[uint]decimal.Decimal, error) {
	var rows []models.SupplyItem
	err := r.db.Select("product_id", "quantity").
		Where("date_created >= ? AND date_created < ?", week.Start, week.End).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.FromDB(err)
	}
	out := map[uint]decimal.Decimal{}
	for _, row := range rows {
		out[row.ProductID] = out[row.ProductID].Add(row.Quantity)
	}
	return out, nil
}

func (r *Reporter) fundOf(u *models.User) decimal.Decimal {
	if u.Profile == nil {
		return r.defaultFund
	}
	return u.Profile.Fund
}
