package models

import (
	"time"

	"gorm.io/datatypes"
)

// SnapshotRecord stores one serialized record-store snapshot in the database backend.
type SnapshotRecord struct {
	Name string `gorm:"type:text;primaryKey"` // Snapshot slot name.

	Version  int            `gorm:"not null;default:1"`  // Document format version.
	Document datatypes.JSON `gorm:"type:jsonb;not null"` // Serialized snapshot document.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName returns the database table name for SnapshotRecord.
func (SnapshotRecord) TableName() string { return "snapshots" }
