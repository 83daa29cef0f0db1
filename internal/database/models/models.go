// Package models contains the database model definitions.
package models

import (
	"time"
)

// Setting is a key/value pair. The status payload lives under SettingStatusJSON.
// Table: settings
type Setting struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Key       string    `gorm:"column:key;uniqueIndex"`
	Value     string    `gorm:"column:value"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Setting) TableName() string { return "settings" }

// SettingStatusJSON holds the payload returned for DDP status queries.
const SettingStatusJSON = "ddp_status_json"

// Output is a DDP destination that is pre-sized at startup.
// Table: outputs
type Output struct {
	ID        string    `gorm:"column:id;primaryKey"`
	DeviceID  int       `gorm:"column:device_id;uniqueIndex"`
	Name      string    `gorm:"column:name"`
	Size      int       `gorm:"column:size"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Output) TableName() string { return "outputs" }

// All returns every model for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Setting{},
		&Output{},
	}
}
