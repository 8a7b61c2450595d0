// Package jobs holds the periodic maintenance tasks run from koopctl or cron.
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"koop-backend/internal/apperr"
	"koop-backend/internal/catalog"
	"koop-backend/internal/cycle"
	"koop-backend/internal/logger"
	"koop-backend/internal/mail"
	"koop-backend/internal/models"
	"koop-backend/internal/orders"
	"koop-backend/internal/report"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB      *gorm.DB
	Cycle   *cycle.Cycle
	Orders  *orders.Service
	Mailer  mail.Mailer
	Catalog *catalog.Service // optional, drops cached product pages after bulk writes
	Log     *zap.Logger
}

type Runner struct {
	db      *gorm.DB
	cycle   *cycle.Cycle
	orders  *orders.Service
	mailer  mail.Mailer
	catalog *catalog.Service
	log     *zap.Logger
}

func New(d Deps) *Runner {
	log := logger.OrNop(d.Log)
	mailer := d.Mailer
	if mailer == nil {
		mailer = mail.NewLogMailer(log)
	}
	return &Runner{
		db:      d.DB,
		cycle:   d.Cycle,
		orders:  d.Orders,
		mailer:  mailer,
		catalog: d.Catalog,
		log:     log,
	}
}

func (r *Runner) invalidate(producerIDs ...uint) {
	if r.catalog != nil {
		r.catalog.Invalidate(producerIDs...)
	}
}

// ResetDeliveredQuantities sets every product's delivered quantity to zero.
func (r *Runner) ResetDeliveredQuantities() (int64, error) {
	res := r.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Model(&models.Product{}).
		Update("quantity_delivered_this_week", decimal.Zero)
	if res.Error != nil {
		return 0, apperr.FromDB(res.Error)
	}
	r.log.Info("delivered quantities reset", zap.Int64("products", res.RowsAffected))
	return res.RowsAffected, nil
}

// AdvanceOrderDeadlines moves every past product and producer deadline forward by whole
// weeks until it is in the future. Wall-clock time in the koop's zone is kept across DST.
func (r *Runner) AdvanceOrderDeadlines() (int, error) {
	now := r.cycle.Now()
	loc := r.cycle.Location()
	next := func(d time.Time) time.Time {
		local := d.In(loc)
		for !local.After(now) {
			local = local.AddDate(0, 0, 7)
		}
		return local.UTC()
	}

	moved := 0
	var producerIDs []uint
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var products []models.Product
		if err := tx.Select("id", "producer_id", "order_deadline").
			Where("order_deadline IS NOT NULL AND order_deadline <= ?", now).Find(&products).Error; err != nil {
			return err
		}
		for _, p := range products {
			if err := tx.Model(&models.Product{}).Where("id = ?", p.ID).
				Update("order_deadline", next(*p.OrderDeadline)).Error; err != nil {
				return err
			}
			producerIDs = append(producerIDs, p.ProducerID)
			moved++
		}

		var producers []models.Producer
		if err := tx.Select("id", "order_deadline").
			Where("order_deadline IS NOT NULL AND order_deadline <= ?", now).Find(&producers).Error; err != nil {
			return err
		}
		for _, p := range producers {
			if err := tx.Model(&models.Producer{}).Where("id = ?", p.ID).
				Update("order_deadline", next(*p.OrderDeadline)).Error; err != nil {
				return err
			}
			producerIDs = append(producerIDs, p.ID)
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, apperr.FromDB(err)
	}
	r.invalidate(producerIDs...)
	r.log.Info("order deadlines advanced", zap.Int("moved", moved))
	return moved, nil
}

// SetProducerOrderDeadline sets the deadline of the producer and all its products to the
// next weekday at hour:00 in the koop's zone, and returns that moment.
func (r *Runner) SetProducerOrderDeadline(slug string, weekday time.Weekday, hour int) (time.Time, int64, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, 0, apperr.Rejected(apperr.ReasonInvalidInput, "hour must be within 0..23")
	}
	var producer models.Producer
	if err := r.db.Where("slug = ?", slug).Take(&producer).Error; err != nil {
		return time.Time{}, 0, apperr.NotFoundAs(err, "producer")
	}
	deadline := cycle.NextWeekday(r.cycle.Now(), weekday, hour, r.cycle.Location()).UTC()

	var updated int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).Where("producer_id = ?", producer.ID).Update("order_deadline", deadline)
		if res.Error != nil {
			return res.Error
		}
		updated = res.RowsAffected
		return tx.Model(&producer).Update("order_deadline", deadline).Error
	})
	if err != nil {
		return time.Time{}, 0, apperr.FromDB(err)
	}
	r.invalidate(producer.ID)
	r.log.Info("producer order deadline set",
		zap.String("producer", producer.Slug), zap.Time("deadline", deadline), zap.Int64("products", updated))
	return deadline, updated, nil
}

var summaryTemplate = template.Must(template.New("order_summary").Funcs(template.FuncMap{
	"qty":   report.FormatQuantity,
	"money": report.FormatMoney,
}).Parse(`Dzień dobry {{.Name}},

oto podsumowanie Twojego zamówienia w tym tygodniu.
Numer skrzynki: {{.OrderNumber}}
Dzień odbioru: {{.PickUpDay}}

{{range .Lines}}{{.ProducerShort}} | {{.ProductName}} | {{qty .Quantity}} | {{money .Cost}} zł
{{end}}
Wartość zamówienia: {{money .Totals.Cost}} zł
Fundusz: {{qty .Totals.Fund}}
Do zapłaty: {{money .Totals.CostWithFund}} zł
`))

type summaryData struct {
	Name        string
	OrderNumber int
	PickUpDay   models.PickUpDay
	Lines       []orders.Line
	Totals      orders.Totals
}

// RenderSummary renders the plain-text order summary. Order must have User.Profile and
// Items.Product.Producer loaded.
func RenderSummary(order *models.Order, fund decimal.Decimal) (string, error) {
	var buf bytes.Buffer
	err := summaryTemplate.Execute(&buf, summaryData{
		Name:        order.User.FullName(),
		OrderNumber: order.OrderNumber,
		PickUpDay:   order.PickUpDay,
		Lines:       orders.Lines(order.Items),
		Totals:      orders.ComputeTotals(order, order.Items, fund),
	})
	if err != nil {
		return "", fmt.Errorf("render order summary: %w", err)
	}
	return buf.String(), nil
}

// SendOrderSummaries mails this week's order summary to every member who allows emails.
// A failed message is logged and skipped.
func (r *Runner) SendOrderSummaries(ctx context.Context) (int, error) {
	week := r.cycle.CurrentWeek()
	list, err := r.orders.WeekOrders(week)
	if err != nil {
		return 0, err
	}
	subject := "Podsumowanie zamówienia " + r.cycle.Now().In(r.cycle.Location()).Format("02.01")

	sent := 0
	for i := range list {
		order := &list[i]
		profile := order.User.Profile
		if profile == nil || !profile.AllowEmails || order.User.Email == "" {
			continue
		}
		body, err := RenderSummary(order, profile.Fund)
		if err != nil {
			return sent, err
		}
		msg := mail.Message{To: []string{order.User.Email}, Subject: subject, Body: body}
		if err := r.mailer.Send(ctx, msg); err != nil {
			r.log.Warn("order summary not sent",
				zap.Uint("order_id", order.ID), zap.String("to", order.User.Email), zap.Error(err))
			continue
		}
		sent++
	}
	r.log.Info("order summaries sent", zap.Int("sent", sent), zap.Int("orders", len(list)))
	return sent, nil
}
