package transfer

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"koop-backend/internal/catalog"
	"koop-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/staff/export
func ExportHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := Export(db, &buf); err != nil {
			return err
		}
		name := fmt.Sprintf("koop-dane-%s.xlsx", time.Now().Format("2006-01-02"))
		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
		return c.Send(buf.Bytes())
	}
}

// POST /api/staff/import
// multipart form with the workbook in "file"
func ImportHandler(db *gorm.DB, keeper *stock.Keeper, cat *catalog.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "missing file: "+err.Error())
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files can be imported")
		}
		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "cannot open upload: "+err.Error())
		}
		defer file.Close()

		res, err := Import(db, keeper, file)
		if err != nil {
			return err
		}
		cat.InvalidateAll()
		return c.JSON(res)
	}
}
