package services

import (
	"context"
	"errors"
	"time"

	"campaign-messaging-api/config"
	"campaign-messaging-api/models"

	"gorm.io/gorm"
)

// MessageStore persists one row per (campaign, recipient). Methods taking tx
// run on it when non-nil so they join an upload transaction.
type MessageStore interface {
	DeleteByCampaign(tx *gorm.DB, campaignID int) error
	BulkCreate(tx *gorm.DB, rows []models.Message) error
	FindByRecipient(ctx context.Context, campaignID int, recipient string) (*models.Message, error)
	First(ctx context.Context, campaignID int) (*models.Message, error)
	CountByCampaign(ctx context.Context, campaignID int) (int64, error)
	MarkSent(ctx context.Context, campaignID int, recipient, messageID string) error
	MarkFailed(ctx context.Context, campaignID int, recipient, errorCode string) error
}

type GormMessageStore struct {
	db        *gorm.DB
	batchSize int
}

func NewMessageStore(db *gorm.DB, batchSize int) *GormMessageStore {
	if db == nil {
		db = config.DB
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &GormMessageStore{db: db, batchSize: batchSize}
}

func (s *GormMessageStore) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *GormMessageStore) DeleteByCampaign(tx *gorm.DB, campaignID int) error {
	return s.conn(tx).Where("campaign_id = ?", campaignID).Delete(&models.Message{}).Error
}

func (s *GormMessageStore) BulkCreate(tx *gorm.DB, rows []models.Message) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now()
	for i := range rows {
		if rows[i].Status == "" {
			rows[i].Status = models.MessageStatusPending
		}
		rows[i].CreatedAt = now
		rows[i].UpdatedAt = now
	}
	return s.conn(tx).CreateInBatches(&rows, s.batchSize).Error
}

func (s *GormMessageStore) FindByRecipient(ctx context.Context, campaignID int, recipient string) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("campaign_id = ? AND recipient = ?", campaignID, recipient).
		Order("id ASC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (s *GormMessageStore) First(ctx context.Context, campaignID int) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("id ASC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (s *GormMessageStore) CountByCampaign(ctx context.Context, campaignID int) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).Where("campaign_id = ?", campaignID).Count(&total).Error
	return total, err
}

func (s *GormMessageStore) MarkSent(ctx context.Context, campaignID int, recipient, messageID string) error {
	now := time.Now()
	return s.updateStatus(ctx, campaignID, recipient, map[string]interface{}{
		"status":     models.MessageStatusSent,
		"message_id": messageID,
		"error_code": nil,
		"sent_at":    now,
		"updated_at": now,
	})
}

func (s *GormMessageStore) MarkFailed(ctx context.Context, campaignID int, recipient, errorCode string) error {
	return s.updateStatus(ctx, campaignID, recipient, map[string]interface{}{
		"status":     models.MessageStatusFailed,
		"error_code": errorCode,
		"updated_at": time.Now(),
	})
}

func (s *GormMessageStore) updateStatus(ctx context.Context, campaignID int, recipient string, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&models.Message{}).
		Where("campaign_id = ? AND recipient = ?", campaignID, recipient).
		Updates(updates).Error
}
