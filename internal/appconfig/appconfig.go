// Package appconfig stores the single editable configuration row.
package appconfig

import (
	"time"

	"koop-backend/internal/apperr"
	"koop-backend/internal/cycle"
	"koop-backend/internal/models"

	"gorm.io/gorm"
)

// Load returns the configuration row, creating it with default values on first call.
func Load(db *gorm.DB) (*models.AppConfig, error) {
	cfg := models.AppConfig{ID: models.AppConfigID}
	if err := db.FirstOrCreate(&cfg, "id = ?", models.AppConfigID).Error; err != nil {
		return nil, apperr.FromDB(err)
	}
	return &cfg, nil
}

// Save writes cfg as the configuration row. The primary key is always forced to AppConfigID.
func Save(db *gorm.DB, cfg *models.AppConfig) error {
	cfg.ID = models.AppConfigID
	if cfg.ReportsStartDay != nil {
		t := cfg.ReportsStartDay.UTC()
		cfg.ReportsStartDay = &t
	}
	return apperr.FromDB(db.Save(cfg).Error)
}

// Delete does nothing: the configuration row cannot be removed.
func Delete(*gorm.DB) error {
	return nil
}

// ReportWeek returns the week reports are computed for: the week starting at
// ReportsStartDay when it is set, the live week otherwise.
func ReportWeek(db *gorm.DB, c *cycle.Cycle) (cycle.Week, error) {
	cfg, err := Load(db)
	if err != nil {
		return cycle.Week{}, err
	}
	return WeekFor(cfg, c), nil
}

func WeekFor(cfg *models.AppConfig, c *cycle.Cycle) cycle.Week {
	if cfg.ReportsStartDay != nil {
		return cycle.WeekStarting(cfg.ReportsStartDay.In(time.UTC))
	}
	return c.CurrentWeek()
}
