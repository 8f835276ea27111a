package models

import "time"

// ProtectedMessage holds an encrypted payload gated by a password hash.
// PasswordHash is a bcrypt digest of the hash supplied at upload, never the password.
type ProtectedMessage struct {
	ID           string    `gorm:"primaryKey;column:id" json:"id"`
	CampaignID   int       `gorm:"column:campaign_id;index" json:"campaign_id"`
	Payload      string    `gorm:"column:payload" json:"-"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
	Version      int       `gorm:"column:version" json:"version"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (ProtectedMessage) TableName() string {
	return "protected_messages"
}
