// Package ledger keeps each member's running payment balance.
package ledger

import (
	"errors"

	"koop-backend/internal/apperr"
	"koop-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Ledger struct {
	defaultFund decimal.Decimal
}

func New(defaultFund decimal.Decimal) *Ledger {
	if defaultFund.IsZero() {
		defaultFund = models.FundDefault
	}
	return &Ledger{defaultFund: defaultFund}
}

// Delta returns the change to payment_balance when an order with the given cost
// (already multiplied by the member's fund) goes from oldPaid to newPaid.
func Delta(oldPaid, newPaid decimal.NullDecimal, costWithFund decimal.Decimal) decimal.Decimal {
	switch {
	case !oldPaid.Valid && !newPaid.Valid:
		return decimal.Zero
	case !oldPaid.Valid:
		return newPaid.Decimal.Sub(costWithFund)
	case !newPaid.Valid:
		return oldPaid.Decimal.Sub(costWithFund).Neg()
	}
	// (new - cost) - (old - cost)
	return newPaid.Decimal.Sub(oldPaid.Decimal)
}

// Apply adds delta to the member's balance under a row lock.
// A member without a profile gets one with the default fund.
func (l *Ledger) Apply(tx *gorm.DB, userID uint, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	profile, err := l.LockProfile(tx, userID)
	if err != nil {
		return err
	}
	err = tx.Model(&models.UserProfile{}).Where("id = ?", profile.ID).
		Update("payment_balance", profile.PaymentBalance.Add(delta)).Error
	return apperr.FromDB(err)
}

// LockProfile loads the member's profile FOR UPDATE, creating a default one if missing.
func (l *Ledger) LockProfile(tx *gorm.DB, userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).Take(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FromDB(err)
	}

	profile = models.UserProfile{
		UserID:         userID,
		Fund:           l.defaultFund,
		PaymentBalance: decimal.Zero,
		AllowEmails:    true,
	}
	if err := tx.Create(&profile).Error; err != nil {
		return nil, apperr.FromDB(err)
	}
	return &profile, nil
}

// Balance returns the member's balance; zero when there is no profile yet.
func Balance(db *gorm.DB, userID uint) (decimal.Decimal, error) {
	var profile models.UserProfile
	err := db.Where("user_id = ?", userID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, apperr.FromDB(err)
	}
	return profile.PaymentBalance, nil
}
