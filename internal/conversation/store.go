package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/biodoia/goleapcouncil/internal/council"
	"github.com/biodoia/goleapcouncil/pkg/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indica una conversazione inesistente
	ErrNotFound = errors.New("conversation not found")

	// ErrEmptyContent indica un messaggio utente vuoto
	ErrEmptyContent = errors.New("message content is empty")
)

// Store persiste conversazioni e messaggi via GORM
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore crea uno store sopra una connessione GORM già migrata
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create crea una conversazione vuota
func (s *Store) Create(ctx context.Context) (*models.Conversation, error) {
	now := s.now()
	conv := &models.Conversation{
		Title:     models.DefaultConversationTitle,
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.Message{},
	}

	if err := s.db.WithContext(ctx).Omit("Messages").Create(conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

// Get restituisce la conversazione con i messaggi in ordine di inserimento
func (s *Store) Get(ctx context.Context, id string) (*models.Conversation, error) {
	convID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var conv models.Conversation
	err = s.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") }).
		Where("id = ?", convID).
		First(&conv).Error
	if err != nil {
		return nil, notFound(err)
	}

	if conv.Messages == nil {
		conv.Messages = []models.Message{}
	}
	return &conv, nil
}

// List restituisce i metadati delle conversazioni, le più recenti prima
func (s *Store) List(ctx context.Context) ([]models.ConversationSummary, error) {
	var convs []models.Conversation
	err := s.db.WithContext(ctx).
		Order("updated_at DESC").
		Order("created_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	var counts []struct {
		ConversationID uuid.UUID
		Total          int
	}
	err = s.db.WithContext(ctx).
		Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS total").
		Group("conversation_id").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	byConversation := make(map[uuid.UUID]int, len(counts))
	for _, c := range counts {
		byConversation[c.ConversationID] = c.Total
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, models.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: byConversation[conv.ID],
		})
	}
	return summaries, nil
}

// Delete rimuove la conversazione e i suoi messaggi.
// Restituisce la conversazione eliminata (senza messaggi).
func (s *Store) Delete(ctx context.Context, id string) (*models.Conversation, error) {
	convID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var deleted models.Conversation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", convID).First(&deleted).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("conversation_id = ?", convID).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Delete(&models.Conversation{}, "id = ?", convID).Error; err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// UpdateTitle aggiorna il titolo
func (s *Store) UpdateTitle(ctx context.Context, id, title string) error {
	convID, err := parseID(id)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", convID).
		Updates(map[string]any{"title": title, "updated_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("failed to update title: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendUserMessage aggiunge un turno utente
func (s *Store) AppendUserMessage(ctx context.Context, id, content string) error {
	return s.appendMessage(ctx, id, &models.Message{
		Role:    models.RoleUser,
		Content: content,
	})
}

// AppendAssistantMessage aggiunge il turno assistant con i risultati dei tre stage
func (s *Store) AppendAssistantMessage(ctx context.Context, id string, result *council.Result) error {
	msg := &models.Message{Role: models.RoleAssistant}

	fields := []struct {
		dst   *datatypes.JSON
		value any
	}{
		{&msg.Stage1, result.Stage1},
		{&msg.Stage2, result.Stage2},
		{&msg.Stage3, result.Stage3},
		{&msg.Metadata, result.Metadata},
	}
	for _, f := range fields {
		raw, err := json.Marshal(f.value)
		if err != nil {
			return fmt.Errorf("failed to encode assistant message: %w", err)
		}
		*f.dst = datatypes.JSON(raw)
	}

	return s.appendMessage(ctx, id, msg)
}

func (s *Store) appendMessage(ctx context.Context, id string, msg *models.Message) error {
	convID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()

		res := tx.Model(&models.Conversation{}).
			Where("id = ?", convID).
			Update("updated_at", now)
		if res.Error != nil {
			return fmt.Errorf("failed to touch conversation: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var next int
		err := tx.Model(&models.Message{}).
			Where("conversation_id = ?", convID).
			Select("COALESCE(MAX(seq), 0) + 1").
			Scan(&next).Error
		if err != nil {
			return fmt.Errorf("failed to compute message sequence: %w", err)
		}

		msg.ConversationID = convID
		msg.Seq = next
		msg.CreatedAt = now
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
		return nil
	})
}

// Stats restituisce le statistiche aggregate dello storage
func (s *Store) Stats(ctx context.Context) (*models.ConversationStats, error) {
	var stats models.ConversationStats

	if err := s.db.WithContext(ctx).Model(&models.Conversation{}).Count(&stats.TotalConversations).Error; err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Message{}).Count(&stats.TotalMessages).Error; err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if stats.TotalConversations > 0 {
		stats.AverageMessagesPerConversation = float64(stats.TotalMessages) / float64(stats.TotalConversations)
	}
	return &stats, nil
}

// Turns converte i messaggi salvati nei turni usati come contesto
func Turns(messages []models.Message) []council.Turn {
	turns := make([]council.Turn, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		switch msg.Role {
		case models.RoleUser:
			turns = append(turns, council.Turn{Role: council.RoleUser, Content: msg.Content})
		case models.RoleAssistant:
			turns = append(turns, council.Turn{Role: council.RoleAssistant, Synthesis: msg.Synthesis()})
		}
	}
	return turns
}

func parseID(id string) (uuid.UUID, error) {
	convID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return convID, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("failed to load conversation: %w", err)
}
