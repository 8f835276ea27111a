package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"campaign-messaging-api/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RowSource delivers CSV rows in chunks, keyed by lower-cased header name.
// NextChunk returns io.EOF once the input is exhausted.
type RowSource interface {
	NextChunk(ctx context.Context) ([]map[string]string, error)
}

type UploadResult struct {
	UploadID   string `json:"upload_id"`
	CampaignID int    `json:"campaign_id"`
	Protected  bool   `json:"protected"`
	Rows       int    `json:"rows"`
	Chunks     int    `json:"chunks"`
}

// UploadPipeline replaces a campaign's message rows with the contents of a CSV.
// Either every chunk lands or none does.
type UploadPipeline struct {
	transactor Transactor
	lock       UploadLock
	templates  TemplateStore
	messages   MessageStore
	protected  ProtectedMessageStore
}

func NewUploadPipeline(transactor Transactor, lock UploadLock, templates TemplateStore, messages MessageStore, protected ProtectedMessageStore) *UploadPipeline {
	if lock == nil {
		lock = NewLocalUploadLock()
	}
	return &UploadPipeline{
		transactor: transactor,
		lock:       lock,
		templates:  templates,
		messages:   messages,
		protected:  protected,
	}
}

func (p *UploadPipeline) Upload(ctx context.Context, campaign *models.Campaign, source RowSource) (*UploadResult, error) {
	if campaign == nil {
		return nil, ErrCampaignNotFound
	}

	result := &UploadResult{
		UploadID:   uuid.NewString(),
		CampaignID: campaign.ID,
		Protected:  campaign.Protect,
	}

	err := p.lock.WithLock(ctx, campaign.ID, func() error {
		tmpl, err := p.templates.FindByCampaign(ctx, campaign.ID)
		if err != nil {
			return err
		}
		if tmpl == nil {
			return ErrMissingTemplateOrParams
		}

		return p.transactor.Transaction(ctx, func(tx *gorm.DB) error {
			session := NewUploadSession(tx, campaign, tmpl, p.messages, p.protected)

			first, err := source.NextChunk(ctx)
			if errors.Is(err, io.EOF) {
				return ErrEmptyUpload
			}
			if err != nil {
				return err
			}
			if err := session.OnPreview(ctx, first); err != nil {
				return err
			}
			if err := session.OnChunk(ctx, first); err != nil {
				return err
			}

			for {
				chunk, err := source.NextChunk(ctx)
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return err
				}
				if err := session.OnChunk(ctx, chunk); err != nil {
					return err
				}
			}

			result.Rows = session.Rows()
			result.Chunks = session.Chunks()
			return nil
		})
	})
	if err != nil {
		log.Printf("upload %s failed (campaign=%d): %v", result.UploadID, campaign.ID, err)
		return nil, err
	}

	log.Printf("upload %s stored %d rows in %d chunks (campaign=%d protected=%t)",
		result.UploadID, result.Rows, result.Chunks, campaign.ID, campaign.Protect)
	return result, nil
}

// UploadSession carries the state of one upload across its phases. OnPreview
// must run once before any OnChunk; all calls share the same transaction.
type UploadSession struct {
	tx        *gorm.DB
	campaign  *models.Campaign
	template  *models.Template
	messages  MessageStore
	protected ProtectedMessageStore

	previewed bool
	rows      int
	chunks    int
}

func NewUploadSession(tx *gorm.DB, campaign *models.Campaign, tmpl *models.Template, messages MessageStore, protected ProtectedMessageStore) *UploadSession {
	return &UploadSession{
		tx:        tx,
		campaign:  campaign,
		template:  tmpl,
		messages:  messages,
		protected: protected,
	}
}

func (s *UploadSession) Rows() int   { return s.rows }
func (s *UploadSession) Chunks() int { return s.chunks }

// OnPreview validates the first chunk and, only if it is sound, clears the
// campaign's previous generation of rows.
func (s *UploadSession) OnPreview(ctx context.Context, rows []map[string]string) error {
	if s.previewed {
		return fmt.Errorf("upload preview already ran for campaign %d", s.campaign.ID)
	}
	if len(rows) == 0 {
		return ErrEmptyUpload
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sample := rows[0]
	if s.campaign.Protect {
		if err := validateProtectedHeaders(sample); err != nil {
			return err
		}
		trial := map[string]string{
			RecipientColumn: sample[RecipientColumn],
			"protectedlink": "",
		}
		if _, err := Render(s.template, trial); err != nil {
			return err
		}
	} else {
		required := append([]string{RecipientColumn}, RequiredPlaceholders(s.template)...)
		if err := ValidateHeaders(sample, required); err != nil {
			return err
		}
		if _, err := Render(s.template, sample); err != nil {
			return err
		}
	}

	if err := s.validateRecipients(rows); err != nil {
		return err
	}

	if err := s.messages.DeleteByCampaign(s.tx, s.campaign.ID); err != nil {
		return persistenceErr("delete messages", err)
	}
	if s.campaign.Protect {
		if err := s.protected.DeleteByCampaign(s.tx, s.campaign.ID); err != nil {
			return persistenceErr("delete protected messages", err)
		}
	}

	s.previewed = true
	return nil
}

// OnChunk persists one chunk in CSV order. Duplicate recipients are kept.
func (s *UploadSession) OnChunk(ctx context.Context, rows []map[string]string) error {
	if !s.previewed {
		return fmt.Errorf("upload chunk for campaign %d received before preview", s.campaign.ID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.validateRecipients(rows); err != nil {
		return err
	}

	var records []models.Message
	if s.campaign.Protect {
		derived, err := s.protected.StoreProtectedMessages(s.tx, s.campaign.ID, rows)
		if err != nil {
			return persistenceErr("store protected messages", err)
		}
		records = derived
	} else {
		records = make([]models.Message, 0, len(rows))
		for _, row := range rows {
			records = append(records, s.plainMessage(row))
		}
	}

	if err := s.messages.BulkCreate(s.tx, records); err != nil {
		return persistenceErr("insert messages", err)
	}

	s.rows += len(rows)
	s.chunks++
	return nil
}

func (s *UploadSession) plainMessage(row map[string]string) models.Message {
	recipient := NormalizeRecipient(row[RecipientColumn])
	params := make(datatypes.JSONMap, len(row))
	for k, v := range row {
		params[k] = v
	}
	params[RecipientColumn] = recipient
	return models.Message{
		CampaignID: s.campaign.ID,
		Recipient:  recipient,
		Params:     params,
		Status:     models.MessageStatusPending,
	}
}

// validateRecipients reports CSV line numbers: the header is line 1.
func (s *UploadSession) validateRecipients(rows []map[string]string) error {
	for i, row := range rows {
		recipient := NormalizeRecipient(row[RecipientColumn])
		if !validRecipient(s.campaign.Type, recipient) {
			return &RecipientError{Line: s.rows + i + 2, Recipient: row[RecipientColumn]}
		}
	}
	return nil
}

func validateProtectedHeaders(sample map[string]string) error {
	expected := map[string]bool{}
	for _, col := range ProtectedCSVColumns {
		expected[col] = true
	}

	var missing, unexpected []string
	seen := map[string]bool{}
	for k := range sample {
		name := strings.ToLower(strings.TrimSpace(k))
		seen[name] = true
		if !expected[name] {
			unexpected = append(unexpected, name)
		}
	}
	for _, col := range ProtectedCSVColumns {
		if !seen[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 || len(unexpected) > 0 {
		sort.Strings(unexpected)
		return &HeaderMismatchError{Missing: missing, Unexpected: unexpected}
	}
	return nil
}
