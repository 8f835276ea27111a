package models

import "time"

const (
	ChannelEmail = "EMAIL"
	ChannelSMS   = "SMS"
)

// Campaign is owned by a single user. Type never changes after creation.
type Campaign struct {
	ID        int       `gorm:"primaryKey;column:id" json:"id"`
	Name      string    `gorm:"column:name" json:"name"`
	UserID    int       `gorm:"column:user_id" json:"user_id"`
	Type      string    `gorm:"column:type" json:"type"` // EMAIL|SMS
	CredName  *string   `gorm:"column:cred_name" json:"cred_name,omitempty"`
	Protect   bool      `gorm:"column:protect" json:"protect"`
	Valid     bool      `gorm:"column:valid" json:"valid"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`

	// Relations
	Template *Template `gorm:"foreignKey:CampaignID" json:"template,omitempty"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

func (c *Campaign) IsEmail() bool {
	return c.Type == ChannelEmail
}

// CredentialName returns the bound credential or an empty string.
func (c *Campaign) CredentialName() string {
	if c.CredName == nil {
		return ""
	}
	return *c.CredName
}
