// Package members manages koop member accounts and their profiles.
package members

import (
	"errors"
	"strings"

	"koop-backend/internal/apperr"
	"koop-backend/internal/audit"
	"koop-backend/internal/auth"
	"koop-backend/internal/logger"
	"koop-backend/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Deps struct {
	DB          *gorm.DB
	DefaultFund decimal.Decimal
	Log         *zap.Logger
}

type Service struct {
	db          *gorm.DB
	defaultFund decimal.Decimal
	log         *zap.Logger
}

func NewService(d Deps) *Service {
	fund := d.DefaultFund
	if fund.IsZero() {
		fund = models.FundDefault
	}
	return &Service{db: d.DB, defaultFund: fund, log: logger.OrNop(d.Log)}
}

type CreateInput struct {
	Username    string
	Password    string
	FirstName   string
	LastName    string
	Email       string
	Role        models.UserRole // member when empty
	KoopID      *uint           // next free number when nil
	PhoneNumber string
	Fund        *decimal.Decimal
	AllowEmails *bool
}

// ProfilePatch changes only the fields that are set. Fund and KoopID are staff-only.
type ProfilePatch struct {
	FirstName   *string
	LastName    *string
	Email       *string
	PhoneNumber *string
	AllowEmails *bool
	Fund        *decimal.Decimal
	KoopID      *uint
}

// Member is a user with their profile, as listed to staff.
type Member struct {
	ID             uint            `json:"id"`
	Username       string          `json:"username"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Role           models.UserRole `json:"role"`
	KoopID         *uint           `json:"koop_id"`
	PhoneNumber    string          `json:"phone_number"`
	Fund           decimal.Decimal `json:"fund"`
	PaymentBalance decimal.Decimal `json:"payment_balance"`
	AllowEmails    bool            `json:"allow_emails"`
}

func (s *Service) toMember(u *models.User) Member {
	m := Member{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.FullName(),
		Email:    u.Email,
		Role:     u.Role,
		Fund:     s.defaultFund,
	}
	if p := u.Profile; p != nil {
		m.KoopID = p.KoopID
		m.PhoneNumber = p.PhoneNumber
		m.Fund = p.Fund
		m.PaymentBalance = p.PaymentBalance
		m.AllowEmails = p.AllowEmails
	}
	return m
}

// CreateMember creates a user and its profile in one transaction.
func (s *Service) CreateMember(actor models.Actor, in CreateInput) (*Member, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only staff can create members")
	}
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, apperr.Rejected(apperr.ReasonInvalidInput, "username and password are required")
	}
	role := in.Role
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleStaff {
		return nil, apperr.Rejected(apperr.ReasonInvalidInput, "unknown role %q", role)
	}
	fund := s.defaultFund
	if in.Fund != nil {
		fund = *in.Fund
	}
	if !models.ValidFund(fund) {
		return nil, apperr.Rejected(apperr.ReasonInvalidFund, "fund must be %s or %s", models.FundLow, models.FundDefault)
	}
	allow := true
	if in.AllowEmails != nil {
		allow = *in.AllowEmails
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Invariant("hash password", err)
	}

	user := models.User{
		Username:     in.Username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        strings.TrimSpace(in.Email),
		PasswordHash: hash,
		Role:         role,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return apperr.FromDB(err)
		}
		koopID := in.KoopID
		if koopID == nil {
			next, err := nextKoopID(tx)
			if err != nil {
				return err
			}
			koopID = &next
		}
		profile := models.UserProfile{
			UserID:         user.ID,
			Fund:           fund,
			KoopID:         koopID,
			PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
			PaymentBalance: decimal.Zero,
			AllowEmails:    allow,
		}
		if err := tx.Create(&profile).Error; err != nil {
			return apperr.FromDB(err)
		}
		user.Profile = &profile

		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionCreate,
			Description: "member created: " + user.Username,
			After:       s.toMember(&user),
		})
	})
	if err != nil {
		return nil, s.logged(err, "create_member", zap.String("username", in.Username))
	}
	m := s.toMember(&user)
	return &m, nil
}

func nextKoopID(tx *gorm.DB) (uint, error) {
	var max uint
	if err := tx.Model(&models.UserProfile{}).Select("COALESCE(MAX(koop_id), 0)").Scan(&max).Error; err != nil {
		return 0, apperr.FromDB(err)
	}
	return max + 1, nil
}

// UpdateProfile applies patch to the user and their profile. Members may only change
// their own contact fields; a missing profile is created with defaults.
func (s *Service) UpdateProfile(actor models.Actor, userID uint, patch ProfilePatch) (*Member, error) {
	if !actor.IsStaff() {
		if !actor.Owns(userID) {
			return nil, apperr.Forbidden("not your profile")
		}
		if patch.Fund != nil || patch.KoopID != nil {
			return nil, apperr.Forbidden("only staff can change fund or koop id")
		}
	}
	if patch.Fund != nil && !models.ValidFund(*patch.Fund) {
		return nil, apperr.Rejected(apperr.ReasonInvalidFund, "fund must be %s or %s", models.FundLow, models.FundDefault)
	}

	var user models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			return apperr.NotFoundAs(err, "user")
		}
		profile, err := s.profileFor(tx, userID)
		if err != nil {
			return err
		}
		user.Profile = profile
		before := s.toMember(&user)

		userUpdates := map[string]any{}
		if patch.FirstName != nil {
			userUpdates["first_name"] = strings.TrimSpace(*patch.FirstName)
		}
		if patch.LastName != nil {
			userUpdates["last_name"] = strings.TrimSpace(*patch.LastName)
		}
		if patch.Email != nil {
			userUpdates["email"] = strings.TrimSpace(*patch.Email)
		}
		if len(userUpdates) > 0 {
			if err := tx.Model(&user).Updates(userUpdates).Error; err != nil {
				return apperr.FromDB(err)
			}
		}

		profileUpdates := map[string]any{}
		if patch.PhoneNumber != nil {
			profileUpdates["phone_number"] = strings.TrimSpace(*patch.PhoneNumber)
		}
		if patch.AllowEmails != nil {
			profileUpdates["allow_emails"] = *patch.AllowEmails
		}
		if patch.Fund != nil {
			profileUpdates["fund"] = *patch.Fund
		}
		if patch.KoopID != nil {
			profileUpdates["koop_id"] = *patch.KoopID
		}
		if len(profileUpdates) > 0 {
			if err := tx.Model(profile).Updates(profileUpdates).Error; err != nil {
				return apperr.FromDB(err)
			}
		}
		if err := tx.Preload("Profile").First(&user, userID).Error; err != nil {
			return apperr.FromDB(err)
		}

		if !actor.IsStaff() {
			return nil
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "user",
			EntityID:    user.ID,
			Action:      models.AuditActionUpdate,
			Description: "profile updated: " + user.Username,
			Before:      before,
			After:       s.toMember(&user),
		})
	})
	if err != nil {
		return nil, s.logged(err, "update_profile", zap.Uint("user_id", userID))
	}
	m := s.toMember(&user)
	return &m, nil
}

func (s *Service) profileFor(tx *gorm.DB, userID uint) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).Take(&profile).Error
	if err == nil {
		return &profile, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.FromDB(err)
	}
	next, err := nextKoopID(tx)
	if err != nil {
		return nil, err
	}
	profile = models.UserProfile{
		UserID:         userID,
		Fund:           s.defaultFund,
		KoopID:         &next,
		PaymentBalance: decimal.Zero,
		AllowEmails:    true,
	}
	if err := tx.Create(&profile).Error; err != nil {
		return nil, apperr.FromDB(err)
	}
	return &profile, nil
}

// ListMembers returns every user ordered by last name, then first name.
func (s *Service) ListMembers(actor models.Actor) ([]Member, error) {
	if !actor.IsStaff() {
		return nil, apperr.Forbidden("only staff can list members")
	}
	var users []models.User
	if err := s.db.Preload("Profile").Order("last_name, first_name, id").Find(&users).Error; err != nil {
		return nil, apperr.FromDB(err)
	}
	out := make([]Member, 0, len(users))
	for i := range users {
		out = append(out, s.toMember(&users[i]))
	}
	return out, nil
}

func (s *Service) GetMember(actor models.Actor, userID uint) (*Member, error) {
	if !actor.IsStaff() && !actor.Owns(userID) {
		return nil, apperr.Forbidden("not your profile")
	}
	var user models.User
	if err := s.db.Preload("Profile").First(&user, userID).Error; err != nil {
		return nil, apperr.NotFoundAs(err, "user")
	}
	m := s.toMember(&user)
	return &m, nil
}

func (s *Service) logged(err error, op string, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	fields = append(fields, zap.String("op", op), zap.Error(err))
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindPermissionDenied:
		s.log.Info("members rejected request", fields...)
	default:
		s.log.Error("members fault", fields...)
	}
	return err
}
