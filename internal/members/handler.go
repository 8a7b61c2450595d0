package members

import (
	"koop-backend/internal/auth"
	"koop-backend/internal/models"
	"koop-backend/internal/request"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateMemberRequest struct {
	Username    string           `json:"username" validate:"required,max=150"`
	Password    string           `json:"password" validate:"required,min=8"`
	FirstName   string           `json:"first_name" validate:"max=150"`
	LastName    string           `json:"last_name" validate:"max=150"`
	Email       string           `json:"email" validate:"omitempty,email"`
	Role        models.UserRole  `json:"role" validate:"omitempty,oneof=member staff"`
	KoopID      *uint            `json:"koop_id" validate:"omitempty,gt=0"`
	PhoneNumber string           `json:"phone_number" validate:"max=20"`
	Fund        *decimal.Decimal `json:"fund"`
	AllowEmails *bool            `json:"allow_emails"`
}

type UpdateProfileRequest struct {
	FirstName   *string          `json:"first_name" validate:"omitempty,max=150"`
	LastName    *string          `json:"last_name" validate:"omitempty,max=150"`
	Email       *string          `json:"email" validate:"omitempty,email"`
	PhoneNumber *string          `json:"phone_number" validate:"omitempty,max=20"`
	AllowEmails *bool            `json:"allow_emails"`
	Fund        *decimal.Decimal `json:"fund"`
	KoopID      *uint            `json:"koop_id" validate:"omitempty,gt=0"`
}

func (r UpdateProfileRequest) patch() ProfilePatch {
	return ProfilePatch{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		PhoneNumber: r.PhoneNumber,
		AllowEmails: r.AllowEmails,
		Fund:        r.Fund,
		KoopID:      r.KoopID,
	}
}

// POST /api/staff/members
func CreateMemberHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		var body CreateMemberRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		m, err := svc.CreateMember(actor, CreateInput{
			Username:    body.Username,
			Password:    body.Password,
			FirstName:   body.FirstName,
			LastName:    body.LastName,
			Email:       body.Email,
			Role:        body.Role,
			KoopID:      body.KoopID,
			PhoneNumber: body.PhoneNumber,
			Fund:        body.Fund,
			AllowEmails: body.AllowEmails,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	}
}

// GET /api/staff/members
func ListMembersHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		list, err := svc.ListMembers(actor)
		if err != nil {
			return err
		}
		return c.JSON(list)
	}
}

// PUT /api/staff/members/:id
func UpdateMemberHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		id, err := request.ID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateProfileRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		m, err := svc.UpdateProfile(actor, id, body.patch())
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

// GET /api/profile
func MyProfileHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		m, err := svc.GetMember(actor, actor.UserID)
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}

// PUT /api/profile
func UpdateMyProfileHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}
		var body UpdateProfileRequest
		if err := request.Parse(c, &body); err != nil {
			return err
		}
		m, err := svc.UpdateProfile(actor, actor.UserID, body.patch())
		if err != nil {
			return err
		}
		return c.JSON(m)
	}
}
