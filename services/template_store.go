package services

import (
	"context"
	"errors"

	"campaign-messaging-api/config"
	"campaign-messaging-api/models"

	"gorm.io/gorm"
)

type TemplateStore interface {
	// FindByCampaign returns nil without error when the campaign has no template.
	FindByCampaign(ctx context.Context, campaignID int) (*models.Template, error)
}

type GormTemplateStore struct {
	db *gorm.DB
}

func NewTemplateStore(db *gorm.DB) *GormTemplateStore {
	if db == nil {
		db = config.DB
	}
	return &GormTemplateStore{db: db}
}

func (s *GormTemplateStore) FindByCampaign(ctx context.Context, campaignID int) (*models.Template, error) {
	var tmpl models.Template
	if err := s.db.WithContext(ctx).Where("campaign_id = ?", campaignID).First(&tmpl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}
