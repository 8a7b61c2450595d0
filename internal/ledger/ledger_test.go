package ledger

import (
	"sync"
	"testing"

	"koop-backend/internal/models"
	"koop-backend/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

func TestDelta(t *testing.T) {
	d := testutil.D
	nd := testutil.ND

	tests := []struct {
		name    string
		oldPaid decimal.NullDecimal
		newPaid decimal.NullDecimal
		cost    string
		want    string
	}{
		{"Given unpaid order When still unpaid Then no change", nd(""), nd(""), "50", "0"},
		{"Given unpaid order When paid 60 for 50 Then plus 10", nd(""), nd("60"), "50", "10"},
		{"Given unpaid order When paid 40 for 50 Then minus 10", nd(""), nd("40"), "50", "-10"},
		{"Given paid 60 for 50 When cleared Then minus 10", nd("60"), nd(""), "50", "-10"},
		{"Given paid 60 When paid 70 Then plus 10", nd("60"), nd("70"), "50", "10"},
		{"Given paid 60 When paid 60 again Then no change", nd("60"), nd("60"), "50", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Delta(tt.oldPaid, tt.newPaid, d(tt.cost))
			if !got.Equal(d(tt.want)) {
				t.Errorf("Delta = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestApplyPaymentRoundTrip(t *testing.T) {
	db := testutil.NewDB(t)
	member := testutil.CreateMember(t, db, "ala")
	db.Model(&models.UserProfile{}).Where("user_id = ?", member.ID).Update("payment_balance", testutil.D("-10"))
	l := New(models.FundDefault)
	cost := testutil.D("50.00")

	pay := Delta(testutil.ND(""), testutil.ND("60.00"), cost)
	if err := db.Transaction(func(tx *gorm.DB) error { return l.Apply(tx, member.ID, pay) }); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	balance, _ := Balance(db, member.ID)
	if !balance.Equal(decimal.Zero) {
		t.Errorf("balance after payment = %s, want 0", balance)
	}

	unpay := Delta(testutil.ND("60.00"), testutil.ND(""), cost)
	if err := db.Transaction(func(tx *gorm.DB) error { return l.Apply(tx, member.ID, unpay) }); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	balance, _ = Balance(db, member.ID)
	if !balance.Equal(testutil.D("-10")) {
		t.Errorf("balance after clearing = %s, want -10", balance)
	}
}

func TestApplyKeepsFractionalCents(t *testing.T) {
	db := testutil.NewDB(t)
	member := testutil.CreateMember(t, db, "ala")
	l := New(models.FundDefault)
	// 1.15 × 1 × 1.3
	cost := testutil.D("1.495")

	pay := Delta(testutil.ND(""), testutil.ND("2.00"), cost)
	if !pay.Equal(testutil.D("0.505")) {
		t.Fatalf("pay delta = %s, want 0.505", pay)
	}
	if err := db.Transaction(func(tx *gorm.DB) error { return l.Apply(tx, member.ID, pay) }); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	balance, _ := Balance(db, member.ID)
	if !balance.Equal(testutil.D("0.505")) {
		t.Errorf("balance after payment = %s, want 0.505", balance)
	}

	unpay := Delta(testutil.ND("2.00"), testutil.ND(""), cost)
	if err := db.Transaction(func(tx *gorm.DB) error { return l.Apply(tx, member.ID, unpay) }); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	balance, _ = Balance(db, member.ID)
	if !balance.IsZero() {
		t.Errorf("balance after clearing = %s, want 0", balance)
	}
}

func TestPaymentBalanceColumnHoldsFundedCosts(t *testing.T) {
	s, err := schema.Parse(&models.UserProfile{}, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	field := s.LookUpField("PaymentBalance")
	if field == nil {
		t.Fatal("no PaymentBalance field")
	}
	// 2 dp prices × 3 dp quantities × 1 dp fund need 6 decimal places
	if got := string(field.DataType); got != "decimal(15,6)" {
		t.Errorf("payment_balance type = %q, want decimal(15,6)", got)
	}
}

func TestApplyCreatesMissingProfile(t *testing.T) {
	db := testutil.NewDB(t)
	member := testutil.CreateMemberWithoutProfile(t, db, "ola")
	l := New(models.FundDefault)

	if err := db.Transaction(func(tx *gorm.DB) error { return l.Apply(tx, member.ID, testutil.D("5.5")) }); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	var profile models.UserProfile
	if err := db.Where("user_id = ?", member.ID).Take(&profile).Error; err != nil {
		t.Fatalf("profile not created: %v", err)
	}
	if !profile.Fund.Equal(models.FundDefault) || !profile.PaymentBalance.Equal(testutil.D("5.5")) {
		t.Errorf("profile = fund %s balance %s, want 1.3 and 5.5", profile.Fund, profile.PaymentBalance)
	}
	if !profile.AllowEmails {
		t.Error("lazily created profile must allow emails")
	}
}
