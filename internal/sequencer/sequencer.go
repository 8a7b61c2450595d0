// Package sequencer assigns order numbers that stay dense, 1..N, within each week.
package sequencer

import (
	"errors"
	"time"

	"koop-backend/internal/apperr"
	"koop-backend/internal/cycle"
	"koop-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Sequencer struct {
	cycle *cycle.Cycle
}

func New(c *cycle.Cycle) *Sequencer {
	return &Sequencer{cycle: c}
}

// lock serializes every numbering transaction on the AppConfig row.
func lock(tx *gorm.DB) error {
	var cfg models.AppConfig
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&cfg, "id = ?", models.AppConfigID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg.ID = models.AppConfigID
		err = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&cfg).Error
	}
	return apperr.FromDB(err)
}

// Next returns the number for an order created at createdAt. Call it in the transaction that inserts the order.
func (s *Sequencer) Next(tx *gorm.DB, createdAt time.Time) (int, error) {
	if err := lock(tx); err != nil {
		return 0, err
	}
	week := s.cycle.WeekOf(createdAt)

	var count int64
	err := tx.Model(&models.Order{}).
		Where("date_created >= ? AND date_created < ?", week.Start, week.End).
		Count(&count).Error
	if err != nil {
		return 0, apperr.FromDB(err)
	}
	return int(count) + 1, nil
}

// Repack closes the gap left by the removed order number in week.
func (s *Sequencer) Repack(tx *gorm.DB, week cycle.Week, removed int) error {
	if err := lock(tx); err != nil {
		return err
	}
	err := tx.Model(&models.Order{}).
		Where("date_created >= ? AND date_created < ? AND order_number > ?", week.Start, week.End, removed).
		UpdateColumn("order_number", gorm.Expr("order_number - 1")).Error
	return apperr.FromDB(err)
}

// Week returns the week an order created at t is numbered in.
func (s *Sequencer) Week(t time.Time) cycle.Week {
	return s.cycle.WeekOf(t)
}
