package audit

import (
	"encoding/json"
	"fmt"

	"koop-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LogOptions struct {
	Actor       models.Actor
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog stores one audit row inside tx, so the row commits or rolls back with the change it describes.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	requestID := opts.Actor.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var user models.User
	userName := ""
	if err := tx.Select("id", "username").Take(&user, opts.Actor.UserID).Error; err == nil {
		userName = user.Username
	}

	log := models.AuditLog{
		RequestID:   requestID,
		UserID:      opts.Actor.UserID,
		UserName:    userName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}
