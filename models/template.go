package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Template belongs to exactly one campaign. Subject and ReplyTo are unused for SMS.
type Template struct {
	CampaignID int            `gorm:"primaryKey;column:campaign_id" json:"campaign_id"`
	Subject    *string        `gorm:"column:subject" json:"subject,omitempty"`
	Body       *string        `gorm:"column:body" json:"body,omitempty"`
	ReplyTo    *string        `gorm:"column:reply_to" json:"reply_to,omitempty"`
	Params     datatypes.JSON `gorm:"column:params" json:"params"`
	CreatedAt  time.Time      `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"column:updated_at" json:"updated_at"`
}

func (Template) TableName() string {
	return "templates"
}

// DeclaredParams decodes the stored placeholder list. Nil when the column is empty or malformed.
func (t *Template) DeclaredParams() []string {
	if len(t.Params) == 0 {
		return nil
	}
	var params []string
	if err := json.Unmarshal(t.Params, &params); err != nil {
		return nil
	}
	return params
}
