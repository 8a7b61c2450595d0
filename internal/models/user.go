package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type UserRole string

const (
	RoleStaff  UserRole = "staff"
	RoleMember UserRole = "member"
)

type User struct {
	ID           uint     `gorm:"primaryKey"`
	Username     string   `gorm:"size:150;uniqueIndex;not null"`
	FirstName    string   `gorm:"size:150"`
	LastName     string   `gorm:"size:150"`
	Email        string   `gorm:"size:254;index"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Profile *UserProfile `gorm:"foreignKey:UserID"`
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

var (
	FundLow     = decimal.RequireFromString("1.1")
	FundDefault = decimal.RequireFromString("1.3")
)

// ValidFund reports whether f is one of the allowed fund multipliers.
func ValidFund(f decimal.Decimal) bool {
	return f.Equal(FundLow) || f.Equal(FundDefault)
}

type UserProfile struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Fund           decimal.Decimal `gorm:"type:decimal(3,1);not null" json:"fund"`
	KoopID         *uint           `gorm:"uniqueIndex" json:"koop_id"`
	PhoneNumber    string          `gorm:"size:20" json:"phone_number"`
	// holds fund-multiplied costs unrounded; money is rounded when formatted
	PaymentBalance decimal.Decimal `gorm:"type:decimal(15,6);not null" json:"payment_balance"`
	AllowEmails    bool            `gorm:"not null" json:"allow_emails"`
}

// Actor is the caller of a core operation.
type Actor struct {
	UserID uint
	Role   UserRole

	// RequestID correlates audit rows written on behalf of one request; may be empty.
	RequestID string
}

func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff
}

// Owns reports whether the actor owns a record belonging to userID.
func (a Actor) Owns(userID uint) bool {
	return a.UserID == userID
}
