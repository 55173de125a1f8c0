package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultConversationTitle è il titolo di una conversazione appena creata
const DefaultConversationTitle = "New Conversation"

// Ruoli dei messaggi salvati
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Conversation rappresenta una conversazione con il council
type Conversation struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Title     string    `json:"title" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`

	Messages []Message `json:"messages" gorm:"foreignKey:ConversationID"`
}

// BeforeCreate hook per generare UUID e titolo di default
func (c *Conversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Title == "" {
		c.Title = DefaultConversationTitle
	}
	return nil
}

// TableName specifica il nome della tabella
func (Conversation) TableName() string {
	return "conversations"
}

// Message è un turno salvato. I turni user hanno Content,
// i turni assistant hanno i risultati dei tre stage.
type Message struct {
	ID             uuid.UUID `json:"-" gorm:"type:uuid;primary_key"`
	ConversationID uuid.UUID `json:"-" gorm:"type:uuid;not null;index:idx_conversation_seq,priority:1"`
	Seq            int       `json:"-" gorm:"not null;index:idx_conversation_seq,priority:2"`
	Role           string    `json:"role" gorm:"not null"`
	Content        string    `json:"content,omitempty"`

	Stage1   datatypes.JSON `json:"stage1,omitempty" gorm:"type:jsonb"`
	Stage2   datatypes.JSON `json:"stage2,omitempty" gorm:"type:jsonb"`
	Stage3   datatypes.JSON `json:"stage3,omitempty" gorm:"type:jsonb"`
	Metadata datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"timestamp"`
}

// BeforeCreate hook per generare UUID
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// TableName specifica il nome della tabella
func (Message) TableName() string {
	return "messages"
}

// Synthesis restituisce la risposta finale di un turno assistant
func (m *Message) Synthesis() string {
	if m.Role != RoleAssistant || len(m.Stage3) == 0 {
		return ""
	}

	var stage3 struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(m.Stage3, &stage3); err != nil {
		return ""
	}
	return stage3.Response
}

// ConversationSummary è la vista di lista di una conversazione
type ConversationSummary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// ConversationStats riassume lo storage
type ConversationStats struct {
	TotalConversations             int64   `json:"total_conversations"`
	TotalMessages                  int64   `json:"total_messages"`
	AverageMessagesPerConversation float64 `json:"average_messages_per_conversation"`
}
