package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"campaign-messaging-api/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// memoryState backs the in-memory stores used by pipeline and dispatcher tests.
type memoryState struct {
	mu        sync.Mutex
	messages  []models.Message
	protected []models.ProtectedMessage
	nextID    int
}

type memorySnapshot struct {
	messages  []models.Message
	protected []models.ProtectedMessage
	nextID    int
}

func (s *memoryState) snapshot() memorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memorySnapshot{
		messages:  append([]models.Message(nil), s.messages...),
		protected: append([]models.ProtectedMessage(nil), s.protected...),
		nextID:    s.nextID,
	}
}

func (s *memoryState) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = snap.messages
	s.protected = snap.protected
	s.nextID = snap.nextID
}

func (s *memoryState) campaignMessages(campaignID int) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Message
	for _, m := range s.messages {
		if m.CampaignID == campaignID {
			out = append(out, m)
		}
	}
	return out
}

// memoryTransactor restores the pre-transaction snapshot when fn fails.
type memoryTransactor struct {
	state     *memoryState
	commits   int
	rollbacks int
}

func (t *memoryTransactor) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	snap := t.state.snapshot()
	if err := fn(nil); err != nil {
		t.state.restore(snap)
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

type memoryMessageStore struct {
	state        *memoryState
	deleteCalls  int
	insertCalls  int
	failInsertAt int
	markSentErr  error
}

func (s *memoryMessageStore) DeleteByCampaign(_ *gorm.DB, campaignID int) error {
	s.deleteCalls++
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	kept := s.state.messages[:0:0]
	for _, m := range s.state.messages {
		if m.CampaignID != campaignID {
			kept = append(kept, m)
		}
	}
	s.state.messages = kept
	return nil
}

func (s *memoryMessageStore) BulkCreate(_ *gorm.DB, rows []models.Message) error {
	s.insertCalls++
	if s.failInsertAt > 0 && s.insertCalls == s.failInsertAt {
		return errors.New("deadlock found when trying to get lock")
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for _, r := range rows {
		s.state.nextID++
		r.ID = s.state.nextID
		if r.Status == "" {
			r.Status = models.MessageStatusPending
		}
		s.state.messages = append(s.state.messages, r)
	}
	return nil
}

func (s *memoryMessageStore) FindByRecipient(_ context.Context, campaignID int, recipient string) (*models.Message, error) {
	for _, m := range s.state.campaignMessages(campaignID) {
		if m.Recipient == recipient {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (s *memoryMessageStore) First(_ context.Context, campaignID int) (*models.Message, error) {
	rows := s.state.campaignMessages(campaignID)
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *memoryMessageStore) CountByCampaign(_ context.Context, campaignID int) (int64, error) {
	return int64(len(s.state.campaignMessages(campaignID))), nil
}

func (s *memoryMessageStore) MarkSent(_ context.Context, campaignID int, recipient, messageID string) error {
	if s.markSentErr != nil {
		return s.markSentErr
	}
	return s.update(campaignID, recipient, func(m *models.Message) {
		m.Status = models.MessageStatusSent
		m.MessageID = &messageID
	})
}

func (s *memoryMessageStore) MarkFailed(_ context.Context, campaignID int, recipient, code string) error {
	return s.update(campaignID, recipient, func(m *models.Message) {
		m.Status = models.MessageStatusFailed
		m.ErrorCode = &code
	})
}

func (s *memoryMessageStore) update(campaignID int, recipient string, fn func(*models.Message)) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for i := range s.state.messages {
		if s.state.messages[i].CampaignID == campaignID && s.state.messages[i].Recipient == recipient {
			fn(&s.state.messages[i])
		}
	}
	return nil
}

type memoryProtectedStore struct {
	state       *memoryState
	deleteCalls int
}

func (s *memoryProtectedStore) StoreProtectedMessages(_ *gorm.DB, campaignID int, rows []map[string]string) ([]models.Message, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	out := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		if row["id"] == "" {
			return nil, errors.New("protected message id is empty")
		}
		s.state.protected = append(s.state.protected, models.ProtectedMessage{
			ID:           row["id"],
			CampaignID:   campaignID,
			Payload:      row["payload"],
			PasswordHash: row["passwordhash"],
			Version:      1,
		})
		recipient := NormalizeRecipient(row["recipient"])
		out = append(out, models.Message{
			CampaignID: campaignID,
			Recipient:  recipient,
			Params: datatypes.JSONMap{
				"recipient":     recipient,
				"protectedlink": fmt.Sprintf("https://example.org/p/1/%s", row["id"]),
			},
		})
	}
	return out, nil
}

func (s *memoryProtectedStore) DeleteByCampaign(_ *gorm.DB, campaignID int) error {
	s.deleteCalls++
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	kept := s.state.protected[:0:0]
	for _, p := range s.state.protected {
		if p.CampaignID != campaignID {
			kept = append(kept, p)
		}
	}
	s.state.protected = kept
	return nil
}

func (s *memoryProtectedStore) Retrieve(_ context.Context, id, passwordHash string) (*models.ProtectedMessage, error) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	for _, p := range s.state.protected {
		if p.ID == id && p.PasswordHash == passwordHash {
			p := p
			return &p, nil
		}
	}
	return nil, ErrProtectedMessageNotFound
}

type memoryTemplateStore map[int]*models.Template

func (s memoryTemplateStore) FindByCampaign(_ context.Context, campaignID int) (*models.Template, error) {
	return s[campaignID], nil
}

type memoryCampaignStore struct {
	mu        sync.Mutex
	campaigns map[int]*models.Campaign
}

func (s *memoryCampaignStore) FindByID(_ context.Context, campaignID int) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

func (s *memoryCampaignStore) FindOwned(_ context.Context, campaignID, userID int, channel string) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok || c.UserID != userID || c.Type != channel {
		return nil, ErrCampaignNotFound
	}
	return c, nil
}

func (s *memoryCampaignStore) UpdateCredential(_ context.Context, campaignID int, credName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[campaignID]
	if !ok {
		return ErrCampaignNotFound
	}
	c.CredName = &credName
	return nil
}

// sliceSource feeds pre-built chunks; failAt makes the n-th read (1-based) fail.
type sliceSource struct {
	chunks [][]map[string]string
	idx    int
	failAt int
}

func (s *sliceSource) NextChunk(context.Context) ([]map[string]string, error) {
	if s.failAt > 0 && s.idx+1 == s.failAt {
		s.idx++
		return nil, errors.New("record on line 3: wrong number of fields")
	}
	if s.idx >= len(s.chunks) {
		return nil, io.EOF
	}
	chunk := s.chunks[s.idx]
	s.idx++
	return chunk, nil
}
