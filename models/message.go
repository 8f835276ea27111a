package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

const (
	MessageStatusPending = "PENDING"
	MessageStatusSent    = "SENT"
	MessageStatusFailed  = "FAILED"
)

// Message is one recipient row of a campaign upload generation.
type Message struct {
	ID         int               `gorm:"primaryKey;column:id" json:"id"`
	CampaignID int               `gorm:"column:campaign_id;index" json:"campaign_id"`
	Recipient  string            `gorm:"column:recipient" json:"recipient"`
	Params     datatypes.JSONMap `gorm:"column:params" json:"params"`
	Status     string            `gorm:"column:status" json:"status"`
	MessageID  *string           `gorm:"column:message_id" json:"message_id,omitempty"`
	ErrorCode  *string           `gorm:"column:error_code" json:"error_code,omitempty"`
	SentAt     *time.Time        `gorm:"column:sent_at" json:"sent_at,omitempty"`
	CreatedAt  time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

// StringParams flattens the JSON params into the renderer's input shape.
func (m *Message) StringParams() map[string]string {
	out := make(map[string]string, len(m.Params))
	for k, v := range m.Params {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}
