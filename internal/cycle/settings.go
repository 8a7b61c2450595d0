package cycle

import (
	"fmt"
	"time"

	"koop-backend/internal/config"
)

// SettingsFromConfig builds cycle settings from the KOOP_* environment configuration.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return Settings{}, fmt.Errorf("TIME_ZONE: %w", err)
	}
	weekDay, err := ParseWeekday(cfg.Week.Weekday)
	if err != nil {
		return Settings{}, fmt.Errorf("KOOP_WEEK_INTERVAL_START_WEEKDAY: %w", err)
	}
	orderDay, err := ParseWeekday(cfg.Ordering.Weekday)
	if err != nil {
		return Settings{}, fmt.Errorf("KOOP_ORDERING_INTERVAL_START_WEEKDAY: %w", err)
	}
	return Settings{
		Location:          loc,
		WeekStartWeekday:  weekDay,
		WeekStartHour:     cfg.Week.Hour,
		OrderStartWeekday: orderDay,
		OrderStartHour:    cfg.Ordering.Hour,
		OrderLength:       cfg.Ordering.Length,
		AlwaysOpen:        cfg.Debug,
	}, nil
}
