package catalog

import (
	"koop-backend/internal/auth"
	"koop-backend/internal/request"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// -------------------------
// Request/Response Types
// -------------------------

type ActiveRequest struct {
	IsActive bool `json:"is_active"`
}

type WeightSchemesRequest struct {
	Quantities []decimal.Decimal `json:"quantities"`
}

type WeightSchemeRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type StatusRequest struct {
	StatusType string `json:"status_type" validate:"required,max=100"`
	Desc       string `json:"desc" validate:"max=1000"`
}

type StatusesRequest struct {
	StatusIDs []uint `json:"status_ids"`
}

type navLink struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// -------------------------
// Reads
// -------------------------

// GET /api/producers
func ListProducersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		producers, err := svc.ListActiveProducers(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(producers)
	}
}

// GET /api/producers/:slug
//
// The producer's order form: the producer, its active products and links to the neighbours.
func ProducerPageHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		producer, err := svc.ProducerBySlug(c.Params("slug"))
		if err != nil {
			return err
		}
		products, err := svc.ListProducerProducts(c.UserContext(), producer.ID)
		if err != nil {
			return err
		}

		resp := fiber.Map{"producer": producer, "products": products}
		if producer.IsActive {
			prev, next, err := svc.ProducerNavigation(c.UserContext(), producer.Slug)
			if err != nil {
				return err
			}
			if prev != nil {
				resp["previous"] = navLink{Name: prev.Name, Slug: prev.Slug}
			}
			if next != nil {
				resp["next"] = navLink{Name: next.Name, Slug: next.Slug}
			}
		}
		return c.JSON(resp)
	}
}

// GET /api/weight-schemes
func ListWeightSchemesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		schemes, err := svc.ListWeightSchemes()
		if err != nil {
			return err
		}
		return c.JSON(schemes)
	}
}

// -------------------------
// Producers (staff)
// -------------------------

// POST /api/staff/producers
func CreateProducerHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		var body ProducerInput
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		p, err := svc.CreateProducer(actor, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/staff/producers/:id
func UpdateProducerHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body ProducerPatch
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		p, err := svc.UpdateProducer(actor, id, body)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// PUT /api/staff/producers/:id/active
func SetProducerActiveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body ActiveRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		if err := svc.SetProducerActive(actor, id, body.IsActive); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DELETE /api/staff/producers/:id
func DeleteProducerHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.DeleteProducer(actor, id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// -------------------------
// Products (staff)
// -------------------------

// POST /api/staff/products
func CreateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		var body ProductInput
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		p, err := svc.CreateProduct(actor, body)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/staff/products/:id
func UpdateProductHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body ProductPatch
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		p, err := svc.UpdateProduct(actor, id, body)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// PUT /api/staff/products/:id/weight-schemes
func SetWeightSchemesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body WeightSchemesRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		schemes, err := svc.SetProductWeightSchemes(actor, id, body.Quantities)
		if err != nil {
			return err
		}
		return c.JSON(schemes)
	}
}

// PUT /api/staff/products/:id/statuses
func SetStatusesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body StatusesRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		if err := svc.SetProductStatuses(actor, id, body.StatusIDs); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/staff/weight-schemes
func CreateWeightSchemeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		var body WeightSchemeRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		ws, err := svc.CreateWeightScheme(actor, body.Quantity)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ws)
	}
}

// POST /api/staff/statuses
func CreateStatusHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		var body StatusRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		st, err := svc.CreateStatus(actor, body.StatusType, body.Desc)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(st)
	}
}
