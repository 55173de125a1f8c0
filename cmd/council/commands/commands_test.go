package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/biodoia/goleapcouncil/internal/council"
	"github.com/biodoia/goleapcouncil/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderResult(t *testing.T) {
	var labels council.LabelRegistry
	require.NoError(t, labels.UnmarshalJSON([]byte(`{"Response A":"m1","Response B":"m2"}`)))

	result := &council.Result{
		Stage1: []council.ModelAnswer{
			{Model: "m1", Response: "first answer"},
			{Model: "m2", Response: "second answer"},
		},
		Stage2: []council.JudgeRanking{
			{Model: "m1", ParsedRanking: []string{"Response B", "Response A"}},
		},
		Stage3: council.SynthesisResult{Model: "chair", Response: "combined answer"},
		Metadata: council.Metadata{
			LabelToModel: &labels,
			AggregateRankings: []council.AggregateEntry{
				{Model: "m2", AverageRank: 1, RankingsCount: 1},
				{Model: "m1", AverageRank: 2, RankingsCount: 1},
			},
		},
	}

	var buf bytes.Buffer
	renderResult(&buf, "why?", result)
	out := buf.String()

	assert.Contains(t, out, "first answer")
	assert.Contains(t, out, "Response B (m2) > Response A (m1)")
	assert.Contains(t, out, "combined answer")
	assert.Contains(t, out, "1.00")
}

func TestRenderResult_Failed(t *testing.T) {
	result := &council.Result{
		Stage3: council.SynthesisResult{Model: council.ErrorModel, Response: council.AllModelsFailedText},
		Err:    council.ErrAllModelsFailed,
	}

	var buf bytes.Buffer
	renderResult(&buf, "anyone?", result)

	assert.Contains(t, buf.String(), council.AllModelsFailedText)
	assert.NotContains(t, buf.String(), "Stage 1")
}

func TestGenerateTemplate_RoundTrip(t *testing.T) {
	out, err := generateTemplate(config.Default())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "council.yaml")
	require.NoError(t, os.WriteFile(path, []byte(out), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, config.Default().CouncilConfig(), cfg.CouncilConfig())
}
