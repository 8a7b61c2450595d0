package models

import "time"

// AppConfigID is the primary key of the only AppConfig row.
const AppConfigID = 1

type AppConfig struct {
	ID              uint       `gorm:"primaryKey;autoIncrement:false" json:"-"`
	ReportsStartDay *time.Time `json:"reports_start_day"` // overrides the report week start when set
	HomepageInfo    string     `gorm:"type:text" json:"homepage_info"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
