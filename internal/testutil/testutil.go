// Package testutil holds the database and fixture helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"koop-backend/internal/cycle"
	"koop-backend/internal/database"
	"koop-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a fresh in-memory SQLite database with the full schema migrated.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps the in-memory database alive and serializes transactions
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// D parses a decimal literal.
func D(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ND parses a nullable decimal literal; the empty string is null.
func ND(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(D(s))
}

func Warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

// Cycle returns the default koop cycle (Europe/Warsaw) driven by a fixed clock set to now.
func Cycle(t *testing.T, now time.Time) (*cycle.Cycle, *cycle.FixedClock) {
	t.Helper()
	settings := cycle.DefaultSettings()
	settings.Location = Warsaw(t)
	clock := &cycle.FixedClock{T: now}
	return cycle.New(settings, clock), clock
}

// OrderingTime is a Sunday noon in Europe/Warsaw: inside the default ordering window.
func OrderingTime(t *testing.T) time.Time {
	t.Helper()
	return time.Date(2026, 10, 18, 12, 0, 0, 0, Warsaw(t))
}

func CreateProducer(t *testing.T, db *gorm.DB, name, short string) models.Producer {
	t.Helper()
	p := models.Producer{
		Name:         name,
		Slug:         short + "-" + uuid.NewString()[:8],
		Short:        short,
		DisplayOrder: 10,
		IsActive:     true,
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create producer: %v", err)
	}
	return p
}

type ProductFixture struct {
	ProducerID  uint
	Name        string
	Price       string
	MaxQuantity string // empty: default
	Stock       string // empty: not stocked
	Deadline    *time.Time
	Schemes     []string // the zero scheme is always attached
}

func CreateProduct(t *testing.T, db *gorm.DB, f ProductFixture) models.Product {
	t.Helper()

	maxQ := models.DefaultOrderMaxQuantity
	if f.MaxQuantity != "" {
		maxQ = D(f.MaxQuantity)
	}
	price := "10"
	if f.Price != "" {
		price = f.Price
	}

	schemes := []models.WeightScheme{WeightScheme(t, db, "0")}
	for _, s := range f.Schemes {
		schemes = append(schemes, WeightScheme(t, db, s))
	}

	p := models.Product{
		ProducerID:       f.ProducerID,
		Name:             f.Name,
		Price:            D(price),
		OrderMaxQuantity: maxQ,
		QuantityInStock:  ND(f.Stock),
		IsActive:         true,
		WeightSchemes:    schemes,
	}
	if f.Deadline != nil {
		d := f.Deadline.UTC()
		p.OrderDeadline = &d
	}
	if err := db.Omit("WeightSchemes.*").Create(&p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// WeightScheme returns the scheme for quantity q, creating it if needed.
func WeightScheme(t *testing.T, db *gorm.DB, q string) models.WeightScheme {
	t.Helper()
	var ws models.WeightScheme
	err := db.Where("quantity = ?", D(q)).Attrs(models.WeightScheme{Quantity: D(q)}).FirstOrCreate(&ws).Error
	if err != nil {
		t.Fatalf("weight scheme %s: %v", q, err)
	}
	return ws
}

// CreateMember creates a member with a profile (fund 1.3, balance 0, emails allowed).
func CreateMember(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	return createUser(t, db, username, models.RoleMember, true)
}

// CreateMemberWithoutProfile creates a member that has no profile row.
func CreateMemberWithoutProfile(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	return createUser(t, db, username, models.RoleMember, false)
}

func CreateStaff(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	return createUser(t, db, username, models.RoleStaff, true)
}

func createUser(t *testing.T, db *gorm.DB, username string, role models.UserRole, withProfile bool) models.User {
	t.Helper()
	u := models.User{
		Username:     username,
		FirstName:    username,
		LastName:     "Testowy",
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	if withProfile {
		profile := models.UserProfile{
			UserID:         u.ID,
			Fund:           models.FundDefault,
			PaymentBalance: decimal.Zero,
			AllowEmails:    true,
		}
		if err := db.Create(&profile).Error; err != nil {
			t.Fatalf("create profile: %v", err)
		}
		u.Profile = &profile
	}
	return u
}

func Member(u models.User) models.Actor {
	return models.Actor{UserID: u.ID, Role: u.Role}
}

// Stock reloads a product's quantity_in_stock.
func Stock(t *testing.T, db *gorm.DB, productID uint) decimal.NullDecimal {
	t.Helper()
	var p models.Product
	if err := db.First(&p, productID).Error; err != nil {
		t.Fatalf("load product %d: %v", productID, err)
	}
	return p.QuantityInStock
}

// AssertStock fails the test unless the product's stock equals want.
func AssertStock(t *testing.T, db *gorm.DB, productID uint, want string) {
	t.Helper()
	got := Stock(t, db, productID)
	if !got.Valid || !got.Decimal.Equal(D(want)) {
		t.Errorf("product %d stock = %v, want %s", productID, got, want)
	}
}
