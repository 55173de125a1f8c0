package council

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatHistory(t *testing.T) {
	long := strings.Repeat("x", 250)

	tests := []struct {
		name  string
		turns []Turn
		want  string
	}{
		{
			name:  "empty history",
			turns: nil,
			want:  NoHistory,
		},
		{
			name: "user and assistant turns",
			turns: []Turn{
				{Role: RoleUser, Content: "What is Go?"},
				{Role: RoleAssistant, Synthesis: "A programming language."},
			},
			want: "User: What is Go?\nAssistant: A programming language.",
		},
		{
			name: "assistant synthesis truncated",
			turns: []Turn{
				{Role: RoleAssistant, Synthesis: long},
			},
			want: "Assistant: " + strings.Repeat("x", 200) + "...",
		},
		{
			name: "assistant without synthesis skipped",
			turns: []Turn{
				{Role: RoleUser, Content: "hello"},
				{Role: RoleAssistant},
				{Role: RoleUser, Content: "anyone?"},
			},
			want: "User: hello\nUser: anyone?",
		},
		{
			name: "only last six turns",
			turns: []Turn{
				{Role: RoleUser, Content: "1"},
				{Role: RoleUser, Content: "2"},
				{Role: RoleUser, Content: "3"},
				{Role: RoleUser, Content: "4"},
				{Role: RoleUser, Content: "5"},
				{Role: RoleUser, Content: "6"},
				{Role: RoleUser, Content: "7"},
			},
			want: "User: 2\nUser: 3\nUser: 4\nUser: 5\nUser: 6\nUser: 7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatHistory(tt.turns, 6, 200))
		})
	}
}

func TestTruncate_CountsCharacters(t *testing.T) {
	assert.Equal(t, "città", truncate("città", 5))
	assert.Equal(t, "cit...", truncate("città!", 3))
}

func TestLabelRegistry(t *testing.T) {
	registry := registryFor(t, "llama-3.1-8b-instant", "openai/gpt-oss-20b")

	assert.Equal(t, []string{"Response A", "Response B"}, registry.Labels())

	model, ok := registry.Model("Response B")
	require.True(t, ok)
	assert.Equal(t, "openai/gpt-oss-20b", model)

	label, ok := registry.Label("llama-3.1-8b-instant")
	require.True(t, ok)
	assert.Equal(t, "Response A", label)

	_, ok = registry.Model("Response C")
	assert.False(t, ok)
}

func TestLabelRegistry_Limits(t *testing.T) {
	answers := make([]ModelAnswer, MaxLabels+1)
	for i := range answers {
		answers[i] = ModelAnswer{Model: LabelName(i % MaxLabels)}
	}

	_, err := NewLabelRegistry(answers[:MaxLabels])
	assert.NoError(t, err)

	answers[MaxLabels].Model = "one-too-many"
	_, err = NewLabelRegistry(answers)
	assert.ErrorIs(t, err, ErrTooManyMembers)

	_, err = NewLabelRegistry([]ModelAnswer{{Model: "m1"}, {Model: "m1"}})
	assert.ErrorIs(t, err, ErrDuplicateMember)

	assert.Equal(t, "Response Z", LabelName(MaxLabels-1))
}

func TestLabelRegistry_JSON(t *testing.T) {
	registry := registryFor(t, "m1", "m2", "m3")

	data, err := json.Marshal(registry)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Response A":"m1","Response B":"m2","Response C":"m3"}`, string(data))

	var decoded LabelRegistry
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, registry.Labels(), decoded.Labels())
	assert.Equal(t, registry.Map(), decoded.Map())

	assert.Error(t, json.Unmarshal([]byte(`{"Response B":"m2"}`), &decoded))

	data, err = json.Marshal(emptyRegistry())
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
