package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestConversation_BeforeCreate(t *testing.T) {
	tests := []struct {
		name         string
		conversation *Conversation
		wantTitle    string
	}{
		{
			name:         "generates UUID and default title",
			conversation: &Conversation{},
			wantTitle:    DefaultConversationTitle,
		},
		{
			name:         "keeps existing values",
			conversation: &Conversation{ID: uuid.New(), Title: "Go concurrency"},
			wantTitle:    "Go concurrency",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalID := tt.conversation.ID
			require.NoError(t, tt.conversation.BeforeCreate(nil))

			assert.NotEqual(t, uuid.Nil, tt.conversation.ID)
			if originalID != uuid.Nil {
				assert.Equal(t, originalID, tt.conversation.ID)
			}
			assert.Equal(t, tt.wantTitle, tt.conversation.Title)
		})
	}
}

func TestMessage_Synthesis(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		want    string
	}{
		{
			name:    "assistant with stage3",
			message: Message{Role: RoleAssistant, Stage3: datatypes.JSON(`{"model":"chair","response":"final"}`)},
			want:    "final",
		},
		{
			name:    "assistant without stage3",
			message: Message{Role: RoleAssistant},
			want:    "",
		},
		{
			name:    "user turn",
			message: Message{Role: RoleUser, Content: "hi", Stage3: datatypes.JSON(`{"response":"x"}`)},
			want:    "",
		},
		{
			name:    "malformed stage3",
			message: Message{Role: RoleAssistant, Stage3: datatypes.JSON(`not json`)},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.message.Synthesis())
		})
	}
}
