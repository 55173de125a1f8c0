package council

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func registryFor(t require.TestingT, models ...string) *LabelRegistry {
	answers := make([]ModelAnswer, len(models))
	for i, model := range models {
		answers[i] = ModelAnswer{Model: model, Response: "answer from " + model}
	}
	registry, err := NewLabelRegistry(answers)
	require.NoError(t, err)
	return registry
}

func TestAggregate(t *testing.T) {
	registry := registryFor(t, "m1", "m2", "m3")

	tests := []struct {
		name     string
		rankings []JudgeRanking
		want     []AggregateEntry
	}{
		{
			name:     "no judges",
			rankings: nil,
			want:     []AggregateEntry{},
		},
		{
			name: "single judge full ranking",
			rankings: []JudgeRanking{
				{Model: "m1", ParsedRanking: []string{"Response C", "Response A", "Response B"}},
			},
			want: []AggregateEntry{
				{Model: "m3", AverageRank: 1, RankingsCount: 1},
				{Model: "m1", AverageRank: 2, RankingsCount: 1},
				{Model: "m2", AverageRank: 3, RankingsCount: 1},
			},
		},
		{
			name: "unmentioned model omitted and unknown labels ignored",
			rankings: []JudgeRanking{
				{Model: "m1", ParsedRanking: []string{"Response Z", "Response B"}},
				{Model: "m2", ParsedRanking: []string{"Response B"}},
			},
			want: []AggregateEntry{
				{Model: "m2", AverageRank: 1.5, RankingsCount: 2},
			},
		},
		{
			name: "mean rounded to two decimals",
			rankings: []JudgeRanking{
				{Model: "m1", ParsedRanking: []string{"Response A", "Response B"}},
				{Model: "m2", ParsedRanking: []string{"Response A", "Response B"}},
				{Model: "m3", ParsedRanking: []string{"Response B", "Response A"}},
			},
			want: []AggregateEntry{
				{Model: "m1", AverageRank: 1.33, RankingsCount: 3},
				{Model: "m2", AverageRank: 1.67, RankingsCount: 3},
			},
		},
		{
			name: "half-way means round to even",
			rankings: append(
				repeatJudges(7, []string{"Response A", "Response B"}),
				JudgeRanking{Model: "m8", ParsedRanking: []string{"Response B", "Response A"}},
			),
			want: []AggregateEntry{
				{Model: "m1", AverageRank: 1.12, RankingsCount: 8},
				{Model: "m2", AverageRank: 1.88, RankingsCount: 8},
			},
		},
		{
			name: "ties keep first observed order",
			rankings: []JudgeRanking{
				{Model: "m1", ParsedRanking: []string{"Response A", "Response C"}},
				{Model: "m2", ParsedRanking: []string{"Response C", "Response A", "Response B"}},
			},
			want: []AggregateEntry{
				{Model: "m1", AverageRank: 1.5, RankingsCount: 2},
				{Model: "m3", AverageRank: 1.5, RankingsCount: 2},
				{Model: "m2", AverageRank: 3, RankingsCount: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.rankings, registry))
		})
	}
}

func repeatJudges(n int, ranking []string) []JudgeRanking {
	judges := make([]JudgeRanking, n)
	for i := range judges {
		judges[i] = JudgeRanking{Model: fmt.Sprintf("m%d", i+1), ParsedRanking: ranking}
	}
	return judges
}

type aggregateStat struct {
	mean  float64
	count int
}

func toStats(entries []AggregateEntry) map[string]aggregateStat {
	out := make(map[string]aggregateStat, len(entries))
	for _, e := range entries {
		out[e.Model] = aggregateStat{mean: e.AverageRank, count: e.RankingsCount}
	}
	return out
}

func drawJudges(rt *rapid.T, models []string) []JudgeRanking {
	labels := make([]string, 0, len(models)+1)
	for i := range models {
		labels = append(labels, LabelName(i))
	}
	// Etichetta fuori dal registry, come in un output malformato
	labels = append(labels, "Response Z")

	k := rapid.IntRange(0, 6).Draw(rt, "judges")
	judges := make([]JudgeRanking, k)
	for i := range judges {
		judges[i] = JudgeRanking{
			Model:         models[i%len(models)],
			ParsedRanking: rapid.SliceOfN(rapid.SampledFrom(labels), 0, 8).Draw(rt, "parsed"),
		}
	}
	return judges
}

func TestAggregate_PermutationInvariant(t *testing.T) {
	models := []string{"m1", "m2", "m3", "m4", "m5"}
	registry := registryFor(t, models...)

	rapid.Check(t, func(rt *rapid.T) {
		judges := drawJudges(rt, models)
		shuffled := rapid.Permutation(judges).Draw(rt, "shuffled")

		assert.Equal(rt, toStats(Aggregate(judges, registry)), toStats(Aggregate(shuffled, registry)))
	})
}

func TestAggregate_OnlyMentionedModels(t *testing.T) {
	models := []string{"m1", "m2", "m3", "m4", "m5"}
	registry := registryFor(t, models...)

	rapid.Check(t, func(rt *rapid.T) {
		judges := drawJudges(rt, models)

		mentioned := make(map[string]bool)
		for _, judge := range judges {
			for _, label := range judge.ParsedRanking {
				if model, ok := registry.Model(label); ok {
					mentioned[model] = true
				}
			}
		}

		entries := Aggregate(judges, registry)
		assert.Len(rt, entries, len(mentioned))
		for i, entry := range entries {
			assert.True(rt, mentioned[entry.Model])
			assert.GreaterOrEqual(rt, entry.AverageRank, 1.0)
			assert.Positive(rt, entry.RankingsCount)
			if i > 0 {
				assert.LessOrEqual(rt, entries[i-1].AverageRank, entry.AverageRank)
			}
		}
	})
}
