package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/biodoia/goleapcouncil/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "council.db")

	db, err := New(&Config{Type: "sqlite", Connection: path})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.AutoMigrate())
	require.NoError(t, db.Ping(context.Background()))

	conv := &models.Conversation{}
	require.NoError(t, db.Create(conv).Error)
	assert.Equal(t, models.DefaultConversationTitle, conv.Title)

	var loaded models.Conversation
	require.NoError(t, db.First(&loaded, "id = ?", conv.ID).Error)
	assert.Equal(t, conv.ID, loaded.ID)
}

func TestNew_UnsupportedType(t *testing.T) {
	_, err := New(&Config{Type: "mysql"})
	assert.Error(t, err)
}
