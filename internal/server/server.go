// Package server assembles the HTTP API: services, middleware and routes.
package server

import (
	"errors"
	"strings"

	"koop-backend/internal/appconfig"
	"koop-backend/internal/apperr"
	"koop-backend/internal/audit"
	"koop-backend/internal/auth"
	"koop-backend/internal/cache"
	"koop-backend/internal/catalog"
	"koop-backend/internal/cycle"
	"koop-backend/internal/ledger"
	"koop-backend/internal/logger"
	"koop-backend/internal/members"
	"koop-backend/internal/models"
	"koop-backend/internal/orders"
	"koop-backend/internal/report"
	"koop-backend/internal/sequencer"
	"koop-backend/internal/stock"
	"koop-backend/internal/supply"
	"koop-backend/internal/transfer"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB          *gorm.DB
	Cycle       *cycle.Cycle
	Cache       cache.Cache
	Log         *zap.Logger
	Secret      string
	CORSOrigins string
	DefaultFund decimal.Decimal
}

// Services are the domain services behind the routes.
type Services struct {
	Stock    *stock.Keeper
	Orders   *orders.Service
	Supply   *supply.Service
	Catalog  *catalog.Service
	Members  *members.Service
	Reporter *report.Reporter
}

// NewServices wires the domain services on one database handle.
func NewServices(d Deps) *Services {
	log := logger.OrNop(d.Log)
	fund := d.DefaultFund
	if fund.IsZero() {
		fund = models.FundDefault
	}
	keeper := stock.NewKeeper(log)
	book := orders.NewService(orders.Deps{
		DB:          d.DB,
		Cycle:       d.Cycle,
		Stock:       keeper,
		Sequencer:   sequencer.New(d.Cycle),
		Ledger:      ledger.New(fund),
		DefaultFund: fund,
		Log:         log,
	})
	cat := catalog.NewService(catalog.Deps{
		DB:     d.DB,
		Cycle:  d.Cycle,
		Stock:  keeper,
		Orders: book,
		Cache:  d.Cache,
		Log:    log,
	})
	return &Services{
		Stock:  keeper,
		Orders: book,
		Supply: supply.NewService(supply.Deps{
			DB:     d.DB,
			Cycle:  d.Cycle,
			Stock:  keeper,
			Orders: book,
			Cache:  cat,
			Log:    log,
		}),
		Catalog:  cat,
		Members:  members.NewService(members.Deps{DB: d.DB, DefaultFund: fund, Log: log}),
		Reporter: report.New(d.DB, d.Cycle, fund, log),
	}
}

// New builds the fiber app with every route registered.
func New(d Deps) *fiber.App {
	log := logger.OrNop(d.Log)
	svc := NewServices(d)

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(log),
	})

	origins := strings.Split(d.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(auth.RequestID())
	app.Use(logger.Middleware(log))

	Routes(app, d, svc)
	return app
}

// Routes registers the API on app.
func Routes(app *fiber.App, d Deps, svc *Services) {
	api := app.Group("/api")

	// Public
	api.Post("/auth/login", auth.LoginHandler(d.DB, d.Secret))
	api.Get("/producers", catalog.ListProducersHandler(svc.Catalog))
	api.Get("/producers/:slug", catalog.ProducerPageHandler(svc.Catalog))
	api.Get("/weight-schemes", catalog.ListWeightSchemesHandler(svc.Catalog))
	api.Get("/config", appconfig.GetConfigHandler(d.DB))

	// Authenticated members and staff
	protected := api.Group("", auth.JWTMiddleware(d.Secret))
	protected.Get("/auth/me", auth.MeHandler(d.DB))
	protected.Get("/profile", members.MyProfileHandler(svc.Members))
	protected.Put("/profile", members.UpdateMyProfileHandler(svc.Members))

	protected.Post("/orders", orders.CreateOrderHandler(svc.Orders))
	protected.Get("/orders/current", orders.CurrentOrderHandler(svc.Orders))
	protected.Get("/orders/:id", orders.OrderSummaryHandler(svc.Orders))
	protected.Delete("/orders/:id", orders.DeleteOrderHandler(svc.Orders))
	protected.Post("/orders/:id/items", orders.AddItemsHandler(svc.Orders))
	protected.Put("/orders/:id/pick-up-day", orders.ChangePickUpDayHandler(svc.Orders))
	protected.Put("/order-items/:id", orders.UpdateItemHandler(svc.Orders))
	protected.Delete("/order-items/:id", orders.RemoveItemHandler(svc.Orders))

	// Staff
	staff := protected.Group("/staff", auth.RequireRole(models.RoleStaff))

	staff.Get("/orders", orders.WeekOrdersHandler(svc.Orders))
	staff.Put("/orders/:id/payment", orders.SetPaidAmountHandler(svc.Orders))
	staff.Put("/orders/:id/given", orders.SetGivenHandler(svc.Orders))

	staff.Post("/producers", catalog.CreateProducerHandler(svc.Catalog))
	staff.Put("/producers/:id", catalog.UpdateProducerHandler(svc.Catalog))
	staff.Put("/producers/:id/active", catalog.SetProducerActiveHandler(svc.Catalog))
	staff.Delete("/producers/:id", catalog.DeleteProducerHandler(svc.Catalog))
	staff.Post("/producers/:id/not-arrived", supply.ProducerDidNotArriveHandler(svc.Supply))
	staff.Post("/products", catalog.CreateProductHandler(svc.Catalog))
	staff.Put("/products/:id", catalog.UpdateProductHandler(svc.Catalog))
	staff.Put("/products/:id/weight-schemes", catalog.SetWeightSchemesHandler(svc.Catalog))
	staff.Put("/products/:id/statuses", catalog.SetStatusesHandler(svc.Catalog))
	staff.Put("/products/:id/delivered", supply.RecordDeliveryHandler(svc.Supply))
	staff.Post("/weight-schemes", catalog.CreateWeightSchemeHandler(svc.Catalog))
	staff.Post("/statuses", catalog.CreateStatusHandler(svc.Catalog))

	staff.Get("/supplies", supply.ListWeekSuppliesHandler(svc.Supply))
	staff.Post("/supplies", supply.CreateSupplyHandler(svc.Supply))
	staff.Delete("/supplies/:id", supply.DeleteSupplyHandler(svc.Supply))
	staff.Post("/supplies/:id/items", supply.AddSupplyItemsHandler(svc.Supply))
	staff.Put("/supply-items/:id", supply.UpdateSupplyItemHandler(svc.Supply))
	staff.Delete("/supply-items/:id", supply.DeleteSupplyItemHandler(svc.Supply))

	staff.Get("/members", members.ListMembersHandler(svc.Members))
	staff.Post("/members", members.CreateMemberHandler(svc.Members))
	staff.Put("/members/:id", members.UpdateMemberHandler(svc.Members))

	reports := staff.Group("/reports")
	reports.Get("/producers/:id/box", report.ProducerBoxHandler(svc.Reporter))
	reports.Get("/producers/:id/products", report.ProducerProductsHandler(svc.Reporter))
	reports.Get("/mass-box", report.MassBoxHandler(svc.Reporter))
	reports.Get("/producers-finance", report.ProducersFinanceHandler(svc.Reporter))
	reports.Get("/orders/:id/box", report.MemberBoxHandler(svc.Reporter))
	reports.Get("/member-boxes", report.MemberBoxesHandler(svc.Reporter))
	reports.Get("/members", report.MembersHandler(svc.Reporter))
	reports.Get("/members-finance", report.MembersFinanceHandler(svc.Reporter))
	reports.Get("/excess", report.ExcessHandler(svc.Reporter))

	staff.Put("/config", appconfig.UpdateConfigHandler(d.DB))
	staff.Get("/audit-logs", audit.ListAuditLogsHandler(d.DB))
	staff.Get("/export", transfer.ExportHandler(d.DB))
	staff.Post("/import", transfer.ImportHandler(d.DB, svc.Stock, svc.Catalog))
}

// ErrorHandler renders core errors with their HTTP status. Validation rejections carry
// the machine-readable reason; faults are logged and answered with a generic message.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		var ae *apperr.Error
		if !errors.As(err, &ae) {
			log.Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "unexpected server error"})
		}

		status := apperr.HTTPStatus(ae)
		switch ae.Kind {
		case apperr.KindValidation:
			return c.Status(status).JSON(fiber.Map{"error": ae.Message, "reason": ae.Reason})
		case apperr.KindNotFound, apperr.KindPermissionDenied:
			return c.Status(status).JSON(fiber.Map{"error": ae.Message})
		case apperr.KindConcurrency:
			log.Warn("transaction conflict", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(status).JSON(fiber.Map{"error": "conflicting update, retry"})
		}
		log.Error("server fault", zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{"error": "unexpected server error"})
	}
}
