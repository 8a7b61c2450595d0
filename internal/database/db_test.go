package database_test

import (
	"testing"

	"koop-backend/internal/database"
	"koop-backend/internal/models"
	"koop-backend/internal/testutil"
)

func TestQuantityChoices(t *testing.T) {
	qs := database.QuantityChoices()
	if !qs[0].IsZero() || qs[len(qs)-1].String() != "100" {
		t.Fatalf("range = %s..%s, want 0..100", qs[0], qs[len(qs)-1])
	}
	seen := map[string]bool{}
	for i, q := range qs {
		if seen[q.String()] {
			t.Errorf("duplicate choice %s", q)
		}
		seen[q.String()] = true
		if i > 0 && !qs[i-1].LessThan(q) {
			t.Errorf("choices not ascending at %d: %s then %s", i, qs[i-1], q)
		}
	}
	for _, want := range []string{"0.05", "0.5", "1.5", "2.9", "7.5", "45"} {
		if !seen[want] {
			t.Errorf("missing choice %s", want)
		}
	}
}

func TestMigrateAndSeed(t *testing.T) {
	db := testutil.NewDB(t)

	t.Run("Given a migrated database When migrating again Then seeds stay single", func(t *testing.T) {
		if err := database.Migrate(db); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		var configs, zeros int64
		db.Model(&models.AppConfig{}).Count(&configs)
		db.Model(&models.WeightScheme{}).Where("quantity = ?", 0).Count(&zeros)
		if configs != 1 || zeros != 1 {
			t.Errorf("app configs = %d, zero schemes = %d, want 1 and 1", configs, zeros)
		}
	})

	t.Run("Given the zero scheme When seeding twice Then the second run adds nothing", func(t *testing.T) {
		added, err := database.SeedWeightSchemes(db)
		if err != nil {
			t.Fatalf("SeedWeightSchemes: %v", err)
		}
		if want := len(database.QuantityChoices()) - 1; added != want {
			t.Errorf("first run added %d, want %d", added, want)
		}
		added, err = database.SeedWeightSchemes(db)
		if err != nil {
			t.Fatalf("SeedWeightSchemes: %v", err)
		}
		if added != 0 {
			t.Errorf("second run added %d, want 0", added)
		}
	})
}
