package council

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseRanking(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "marker with numbered lines",
			text: "Response A is vague.\nResponse B is solid.\n\nFINAL RANKING:\n1. Response C\n2. Response A\n3. Response B",
			want: []string{"Response C", "Response A", "Response B"},
		},
		{
			name: "numbered lines without space after period",
			text: "FINAL RANKING:\n1.Response B\n2.Response A",
			want: []string{"Response B", "Response A"},
		},
		{
			name: "marker without numbers falls back to bare labels after marker",
			text: "Response A first mentioned.\nFINAL RANKING:\nResponse B then Response A",
			want: []string{"Response B", "Response A"},
		},
		{
			name: "no marker uses numbered lines in whole text",
			text: "My ranking:\n1. Response B\n2. Response A",
			want: []string{"Response B", "Response A"},
		},
		{
			name: "no marker bare mentions in order without dedup",
			text: "Response A is good, Response C is weak, but Response A wins.",
			want: []string{"Response A", "Response C", "Response A"},
		},
		{
			name: "repeated marker keeps only the first section",
			text: "FINAL RANKING:\n1. Response A\n2. Response B\n\nOn reflection:\nFINAL RANKING:\n1. Response B\n2. Response A",
			want: []string{"Response A", "Response B"},
		},
		{
			name: "marker with nothing after it",
			text: "Response A is best.\nFINAL RANKING:\n(none)",
			want: []string{},
		},
		{
			name: "no labels at all",
			text: "I cannot rank these answers.",
			want: []string{},
		},
		{
			name: "empty text",
			text: "",
			want: []string{},
		},
		{
			name: "lowercase labels are ignored",
			text: "response a beats response b",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRanking(tt.text)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRanking_MarkedOrderWins(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, MaxLabels).Draw(rt, "n")
		labels := make([]string, n)
		for i := range labels {
			labels[i] = LabelName(i)
		}
		order := rapid.Permutation(labels).Draw(rt, "order")
		mentioned := rapid.SliceOf(rapid.SampledFrom(labels)).Draw(rt, "critique")

		var b strings.Builder
		for _, label := range mentioned {
			fmt.Fprintf(&b, "%s has some merit.\n", label)
		}
		b.WriteString("\nFINAL RANKING:\n")
		for i, label := range order {
			fmt.Fprintf(&b, "%d. %s\n", i+1, label)
		}

		assert.Equal(rt, order, ParseRanking(b.String()))
	})
}

func TestParseRanking_NoLabelsIsEmpty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.StringMatching(`[a-z0-9 .:\n]{0,200}`).Draw(rt, "text")

		got := ParseRanking(text)
		assert.NotNil(rt, got)
		assert.Empty(rt, got)
	})
}

func TestParseRanking_NeverPanics(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		text := rapid.String().Draw(rt, "text")

		assert.NotPanics(rt, func() {
			for _, label := range ParseRanking(text) {
				assert.True(rt, strings.HasPrefix(label, labelPrefix))
				assert.Len(rt, label, len(labelPrefix)+1)
			}
		})
	})
}
