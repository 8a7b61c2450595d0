package report

import (
	"bytes"
	"fmt"
	"io"

	"koop-backend/internal/request"

	"github.com/gofiber/fiber/v2"
)

// respond sends data as JSON, or as a CSV attachment when ?format=csv.
func respond(c *fiber.Ctx, filename string, data any, write func(io.Writer) error) error {
	if c.Query("format") != "csv" {
		return c.JSON(data)
	}
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

// GET /api/staff/reports/producers/:id/box
func ProducerBoxHandler(r *Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		week, err := r.Week()
		if err != nil {
			return err
		}
		rows, err := r.ProducerBox(week, id)
		if err != nil {
			return err
		}
		return respond(c, fmt.Sprintf("raport-producent-skrzynka-%d.csv", id), rows, func(w io.Writer) error {
			return WriteProducerBoxCSV(w, rows)
		})
	}
}

// GET /api/staff/reports/producers/:id/products
func ProducerProductsHandler(r *Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		week, err := r.Week()
		if err != nil {
			return err
		}
		rep, err := r.ProducerProducts(week, id)
		if err != nil {
			return err
		}
		return respond(c, fmt.Sprintf("raport-producent-produkty-%s.csv", rep.Producer.Short), rep, func(w io.Writer) error {
			return WriteProducerProductsCSV(w, rep)
		})
	}
}

// GET /api/staff/reports/mass-box
func MassBoxHandler(r *Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		week, err := r.Week()
		if err != nil {
			return err
		}
		rows, err := r.MassBox(week)
		if err != nil {
			return err
		}
		return respond(c, "raport-paczkowanie.csv", rows, func(w io.Writer) error {
			return WriteMassBoxCSV(w, rows)
		})
	}
}

// GET /api/staff/reports/producers-finance
func ProducersFinanceHandler(r *Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		week, err := r.Week()
		if err != nil {
			return err
		}
		rows, err := r.ProducersFinance(week)
		if err != nil {
			return err
		}
		return respond(c, "raport-producenci-finanse.csv", rows, func(w io.Writer) error {
			return WriteProducersFinanceCSV(w, rows)
		})
	}
}

// GET /api/staff/reports/orders/:id/box
func MemberBoxHandler(r *Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		box, err := r.MemberBox(id)
		if err != nil {
			return err
		}
		return respond(c, fmt.Sprintf("raport-zamowienie-skrzynka-%d.csv", box.OrderNumber), box, func(w io.Writer) error {
			return WriteMemberBoxCSV(w, *box)
		})
	}
}

// GET /api/staff/reports/member-boxes
func MemberBoxesHandler(r *Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		week, err := r.Week()
		if err != nil {
			return err
		}
		boxes, err := r.MemberBoxes(week)
		if err != nil {
			return err
		}
		return respond(c, "raport-skrzynki.csv", boxes, func(w io.Writer) error {
			return WriteMemberBoxesCSV(w, boxes)
		})
	}
}

// GET /api/staff/reports/members
func MembersHandler(r *Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		week, err := r.Week()
		if err != nil {
			return err
		}
		rows, err := r.MembersReport(week)
		if err != nil {
			return err
		}
		return respond(c, "raport-koordynacja-kooperantow.csv", rows, func(w io.Writer) error {
			return WriteMembersCSV(w, rows)
		})
	}
}

// GET /api/staff/reports/members-finance
func MembersFinanceHandler(r *Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		week, err := r.Week()
		if err != nil {
			return err
		}
		rows, err := r.MembersFinance(week)
		if err != nil {
			return err
		}
		return respond(c, "raport-kooperanci-finanse.csv", rows, func(w io.Writer) error {
			return WriteMembersFinanceCSV(w, rows)
		})
	}
}

// GET /api/staff/reports/excess
func ExcessHandler(r *Reporter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		week, err := r.Week()
		if err != nil {
			return err
		}
		rows, err := r.ExcessInventory(week)
		if err != nil {
			return err
		}
		return respond(c, "raport-nadwyzki.csv", rows, func(w io.Writer) error {
			return WriteExcessCSV(w, rows)
		})
	}
}
