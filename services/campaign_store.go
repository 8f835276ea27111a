package services

import (
	"context"
	"errors"
	"time"

	"campaign-messaging-api/config"
	"campaign-messaging-api/models"

	"gorm.io/gorm"
)

type CampaignStore interface {
	FindByID(ctx context.Context, campaignID int) (*models.Campaign, error)
	FindOwned(ctx context.Context, campaignID, userID int, channel string) (*models.Campaign, error)
	UpdateCredential(ctx context.Context, campaignID int, credName string) error
}

type GormCampaignStore struct {
	db *gorm.DB
}

func NewCampaignStore(db *gorm.DB) *GormCampaignStore {
	if db == nil {
		db = config.DB
	}
	return &GormCampaignStore{db: db}
}

func (s *GormCampaignStore) FindByID(ctx context.Context, campaignID int) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := s.db.WithContext(ctx).Where("id = ?", campaignID).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

// FindOwned does not distinguish "missing" from "not yours": both are ErrCampaignNotFound.
func (s *GormCampaignStore) FindOwned(ctx context.Context, campaignID, userID int, channel string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND type = ?", campaignID, userID, channel).
		First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

func (s *GormCampaignStore) UpdateCredential(ctx context.Context, campaignID int, credName string) error {
	res := s.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Updates(map[string]interface{}{
			"cred_name":  credName,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCampaignNotFound
	}
	return nil
}
