package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"campaign-messaging-api/config"
	"campaign-messaging-api/models"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProtectedCSVColumns is the exact header set of a protected campaign upload.
var ProtectedCSVColumns = []string{"recipient", "payload", "passwordhash", "id"}

const protectedMessageVersion = 1

// DefaultProtectedHashCost applies when the configured cost is outside bcrypt's range.
const DefaultProtectedHashCost = 6

type ProtectedMessageStore interface {
	// StoreProtectedMessages inserts the protected rows and returns the message rows derived from them.
	StoreProtectedMessages(tx *gorm.DB, campaignID int, rows []map[string]string) ([]models.Message, error)
	DeleteByCampaign(tx *gorm.DB, campaignID int) error
	Retrieve(ctx context.Context, id, passwordHash string) (*models.ProtectedMessage, error)
}

type GormProtectedMessageStore struct {
	db        *gorm.DB
	baseURL   string
	hashCost  int
	batchSize int
}

func NewProtectedMessageStore(db *gorm.DB, baseURL string, hashCost, batchSize int) *GormProtectedMessageStore {
	if db == nil {
		db = config.DB
	}
	if hashCost < bcrypt.MinCost || hashCost > bcrypt.MaxCost {
		hashCost = DefaultProtectedHashCost
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &GormProtectedMessageStore{
		db:        db,
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		hashCost:  hashCost,
		batchSize: batchSize,
	}
}

func (s *GormProtectedMessageStore) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return s.db
}

func (s *GormProtectedMessageStore) StoreProtectedMessages(tx *gorm.DB, campaignID int, rows []map[string]string) ([]models.Message, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	refs := make([]string, len(rows))
	for i, row := range rows {
		if strings.TrimSpace(row["id"]) == "" {
			return nil, fmt.Errorf("row %d: protected message id is empty", i+1)
		}
		refs[i] = strings.TrimSpace(row["passwordhash"])
		if refs[i] == "" {
			return nil, fmt.Errorf("row %d: password hash is empty", i+1)
		}
	}
	digests, err := hashPasswordRefs(refs, s.hashCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	protected := make([]models.ProtectedMessage, 0, len(rows))
	messages := make([]models.Message, 0, len(rows))

	for i, row := range rows {
		id := strings.TrimSpace(row["id"])
		recipient := NormalizeRecipient(row[RecipientColumn])
		protected = append(protected, models.ProtectedMessage{
			ID:           id,
			CampaignID:   campaignID,
			Payload:      row["payload"],
			PasswordHash: digests[i],
			Version:      protectedMessageVersion,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		messages = append(messages, models.Message{
			CampaignID: campaignID,
			Recipient:  recipient,
			Params: datatypes.JSONMap{
				RecipientColumn: recipient,
				"protectedlink": s.ProtectedLink(protectedMessageVersion, id),
			},
		})
	}

	if err := s.conn(tx).CreateInBatches(&protected, s.batchSize).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *GormProtectedMessageStore) DeleteByCampaign(tx *gorm.DB, campaignID int) error {
	return s.conn(tx).Where("campaign_id = ?", campaignID).Delete(&models.ProtectedMessage{}).Error
}

// Retrieve answers ErrProtectedMessageNotFound for an unknown id and for a wrong hash alike.
func (s *GormProtectedMessageStore) Retrieve(ctx context.Context, id, passwordHash string) (*models.ProtectedMessage, error) {
	var msg models.ProtectedMessage
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProtectedMessageNotFound
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(msg.PasswordHash), passwordRefDigest(strings.TrimSpace(passwordHash))) != nil {
		return nil, ErrProtectedMessageNotFound
	}
	return &msg, nil
}

func (s *GormProtectedMessageStore) ProtectedLink(version int, id string) string {
	return fmt.Sprintf("%s/p/%d/%s", s.baseURL, version, id)
}

// passwordRefDigest reduces a supplied hash reference of any length to a
// fixed 64-byte input, below bcrypt's 72-byte limit.
func passwordRefDigest(ref string) []byte {
	sum := sha256.Sum256([]byte(ref))
	return []byte(hex.EncodeToString(sum[:]))
}

// hashPasswordRefs bcrypts every reference across the available CPUs and
// returns the digests in input order.
func hashPasswordRefs(refs []string, cost int) ([]string, error) {
	digests := make([]string, len(refs))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, ref := range refs {
		g.Go(func() error {
			digest, err := bcrypt.GenerateFromPassword(passwordRefDigest(ref), cost)
			if err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			digests[i] = string(digest)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return digests, nil
}
