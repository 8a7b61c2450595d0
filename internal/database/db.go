package database

import (
	"fmt"
	"sort"

	"koop-backend/internal/config"
	"koop-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init opens the postgres connection, migrates the schema and stores the handle in DB.
func Init(cfg *config.Config, log *zap.Logger) error {
	level := gormlogger.Warn
	if cfg.Debug {
		level = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return err
	}

	DB = db
	log.Info("database connected, migration done")
	return nil
}

// Migrate creates or updates every table and seeds the rows the core relies on:
// the zero weight scheme and the AppConfig row.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Producer{},
		&models.WeightScheme{},
		&models.Status{},
		&models.Product{},
		&models.User{},
		&models.UserProfile{},
		&models.Order{},
		&models.OrderItem{},
		&models.Supply{},
		&models.SupplyItem{},
		&models.AppConfig{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}

	if err := EnsureZeroWeightScheme(db); err != nil {
		return err
	}

	cfg := models.AppConfig{ID: models.AppConfigID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&cfg).Error; err != nil {
		return fmt.Errorf("seed app config: %w", err)
	}
	return nil
}

func EnsureZeroWeightScheme(db *gorm.DB) error {
	_, err := ZeroWeightScheme(db)
	return err
}

// ZeroWeightScheme returns the zero weight scheme, creating it if needed.
func ZeroWeightScheme(db *gorm.DB) (models.WeightScheme, error) {
	var ws models.WeightScheme
	err := db.Where("quantity = ?", decimal.Zero).
		Attrs(models.WeightScheme{Quantity: decimal.Zero}).
		FirstOrCreate(&ws).Error
	if err != nil {
		return ws, fmt.Errorf("seed zero weight scheme: %w", err)
	}
	return ws, nil
}

// QuantityChoices returns the standard set of orderable quantities, ascending.
func QuantityChoices() []decimal.Decimal {
	var out []decimal.Decimal
	add := func(s string) { out = append(out, decimal.RequireFromString(s)) }

	add("0")
	add("25")
	add("35")
	add("45")
	add("100")
	for x := 1; x <= 9; x++ {
		add(fmt.Sprintf("0.0%d", x))
		add(fmt.Sprintf("1.%d", x))
		add(fmt.Sprintf("2.%d", x))
		add(fmt.Sprintf("%d", x))
		add(fmt.Sprintf("1%d", x))
		add(fmt.Sprintf("%d0", x))
	}
	for x := 3; x <= 9; x++ {
		add(fmt.Sprintf("%d.5", x))
	}
	for x := 10; x <= 99; x++ {
		add(fmt.Sprintf("0.%d", x))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}

// SeedWeightSchemes inserts every quantity choice that is not stored yet and returns how many were added.
func SeedWeightSchemes(db *gorm.DB) (int, error) {
	var existing []models.WeightScheme
	if err := db.Find(&existing).Error; err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, ws := range existing {
		have[ws.Quantity.String()] = true
	}

	added := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, q := range QuantityChoices() {
			if have[q.String()] {
				continue
			}
			if err := tx.Create(&models.WeightScheme{Quantity: q}).Error; err != nil {
				return err
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seed weight schemes: %w", err)
	}
	return added, nil
}
