package supply

import (
	"koop-backend/internal/apperr"
	"koop-backend/internal/auth"
	"koop-backend/internal/request"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateSupplyRequest struct {
	ProducerID uint `json:"producer_id" validate:"required"`
	FromOrders bool `json:"from_orders"`
}

type AddItemsRequest struct {
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type QuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// POST /api/staff/supplies
func CreateSupplyHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		var body CreateSupplyRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}

		create := svc.CreateSupply
		if body.FromOrders {
			create = svc.CreateSupplyFromOrders
		}
		sup, err := create(actor, body.ProducerID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(sup)
	}
}

// GET /api/staff/supplies
func ListWeekSuppliesHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		supplies, err := svc.ListWeekSupplies(svc.cycle.CurrentWeek())
		if err != nil {
			return err
		}
		return c.JSON(supplies)
	}
}

// DELETE /api/staff/supplies/:id
func DeleteSupplyHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.DeleteSupply(actor, id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/staff/supplies/:id/items
func AddSupplyItemsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body AddItemsRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}

		results := svc.AddSupplyItems(actor, id, body.Items)
		out := make([]fiber.Map, 0, len(results))
		status := fiber.StatusCreated
		for _, r := range results {
			line := fiber.Map{"product_id": r.ProductID}
			if r.Err != nil {
				status = fiber.StatusMultiStatus
				line["error"] = r.Err.Error()
				line["reason"] = apperr.ReasonOf(r.Err)
			} else {
				line["item"] = r.Item
			}
			out = append(out, line)
		}
		return c.Status(status).JSON(fiber.Map{"items": out})
	}
}

// PUT /api/staff/supply-items/:id
func UpdateSupplyItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body QuantityRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		item, err := svc.UpdateSupplyItem(actor, id, body.Quantity)
		if err != nil {
			return err
		}
		if item == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(item)
	}
}

// DELETE /api/staff/supply-items/:id
func DeleteSupplyItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.DeleteSupplyItem(actor, id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/staff/producers/:id/not-arrived
func ProducerDidNotArriveHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		removed, err := svc.ProducerDidNotArrive(actor, id)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"removed_items": removed})
	}
}

// PUT /api/staff/products/:id/delivered
func RecordDeliveryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body QuantityRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		trimmed, err := svc.RecordDelivery(actor, id, body.Quantity)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"trimmed_items": trimmed})
	}
}
