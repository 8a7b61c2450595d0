package appconfig

import (
	"time"

	"koop-backend/internal/request"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UpdateRequest struct {
	// RFC 3339; an empty string clears the override
	ReportsStartDay *string `json:"reports_start_day"`
	HomepageInfo    *string `json:"homepage_info"`
}

// GET /api/config
func GetConfigHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cfg, err := Load(db)
		if err != nil {
			return err
		}
		return c.JSON(cfg)
	}
}

// PUT /api/staff/config
func UpdateConfigHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		cfg, err := Load(db)
		if err != nil {
			return err
		}
		if body.ReportsStartDay != nil {
			if *body.ReportsStartDay == "" {
				cfg.ReportsStartDay = nil
			} else {
				t, err := time.Parse(time.RFC3339, *body.ReportsStartDay)
				if err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "reports_start_day must be RFC 3339")
				}
				cfg.ReportsStartDay = &t
			}
		}
		if body.HomepageInfo != nil {
			cfg.HomepageInfo = *body.HomepageInfo
		}
		if err := Save(db, cfg); err != nil {
			return err
		}
		return c.JSON(cfg)
	}
}
