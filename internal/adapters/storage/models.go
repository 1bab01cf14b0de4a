package storage

import "time"

// SnapshotModel is the GORM model for the snapshots table
type SnapshotModel struct {
	CreatedAt time.Time
	ExpiresAt *time.Time `gorm:"index:idx_expires_at;default:null"`
	Key       string     `gorm:"column:snapshot_key;primaryKey"`
	Payload   []byte     `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (SnapshotModel) TableName() string { return "snapshots" }

// expired reports whether the row is past its expiry at now
func (m SnapshotModel) expired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}
