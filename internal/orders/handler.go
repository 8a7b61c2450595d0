package orders

import (
	"koop-backend/internal/apperr"
	"koop-backend/internal/auth"
	"koop-backend/internal/models"
	"koop-backend/internal/request"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	PickUpDay models.PickUpDay `json:"pick_up_day" validate:"required"`
}

type AddItemsRequest struct {
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type UpdateItemRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

type PickUpDayRequest struct {
	PickUpDay models.PickUpDay `json:"pick_up_day" validate:"required"`
}

// PaidAmountRequest: a null paid_amount clears the payment.
type PaidAmountRequest struct {
	PaidAmount decimal.NullDecimal `json:"paid_amount"`
}

type GivenRequest struct {
	IsGiven bool `json:"is_given"`
}

type lineResponse struct {
	ProductID uint              `json:"product_id"`
	Item      *models.OrderItem `json:"item,omitempty"`
	Error     string            `json:"error,omitempty"`
	Reason    apperr.Reason     `json:"reason,omitempty"`
}

// POST /api/orders
func CreateOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		var body CreateOrderRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}

		order, err := svc.CreateOrder(actor, body.PickUpDay)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

// GET /api/orders/current
func CurrentOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		order, err := svc.CurrentOrder(actor)
		if err != nil {
			return err
		}
		summary, err := svc.summarize(svc.db, order)
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}

// GET /api/orders/:id
func OrderSummaryHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		summary, err := svc.OrderSummary(actor, id)
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}

// POST /api/orders/:id/items
//
// Lines are applied one by one; the response lists each line's outcome.
func AddItemsHandler(svc *Service) fiber.Handler {
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

		results := svc.AddItems(actor, id, body.Items)
		out := make([]lineResponse, 0, len(results))
		failed := 0
		for _, r := range results {
			line := lineResponse{ProductID: r.ProductID, Item: r.Item}
			if r.Err != nil {
				failed++
				line.Item = nil
				line.Error = r.Err.Error()
				line.Reason = apperr.ReasonOf(r.Err)
			}
			out = append(out, line)
		}

		status := fiber.StatusCreated
		if failed > 0 {
			status = fiber.StatusMultiStatus
		}
		return c.Status(status).JSON(fiber.Map{"items": out})
	}
}

// PUT /api/order-items/:id
func UpdateItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateItemRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}

		item, err := svc.UpdateItem(actor, id, body.Quantity)
		if err != nil {
			return err
		}
		if item == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(item)
	}
}

// DELETE /api/order-items/:id
func RemoveItemHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.RemoveItem(actor, id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PUT /api/orders/:id/pick-up-day
func ChangePickUpDayHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body PickUpDayRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}

		order, err := svc.ChangePickUpDay(actor, id, body.PickUpDay)
		if err != nil {
			return err
		}
		return c.JSON(order)
	}
}

// DELETE /api/orders/:id
func DeleteOrderHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		if err := svc.DeleteOrder(actor, id); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PUT /api/staff/orders/:id/payment
func SetPaidAmountHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body PaidAmountRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}

		if _, err := svc.SetPaidAmount(actor, id, body.PaidAmount); err != nil {
			return err
		}
		summary, err := svc.OrderSummary(actor, id)
		if err != nil {
			return err
		}
		return c.JSON(summary)
	}
}

// PUT /api/staff/orders/:id/given
func SetGivenHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body GivenRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		if err := svc.SetGiven(actor, id, body.IsGiven); err != nil {
			return err
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/staff/orders
//
// This week's orders by box number, with totals and payment state.
func WeekOrdersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list, err := svc.WeekOrders(svc.cycle.CurrentWeek())
		if err != nil {
			return err
		}
		resp := make([]*Summary, 0, len(list))
		for i := range list {
			summary, err := svc.summarize(svc.db, &list[i])
			if err != nil {
				return err
			}
			resp = append(resp, summary)
		}
		return c.JSON(resp)
	}
}
