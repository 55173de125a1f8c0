package council

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testParams = Params{Temperature: 0.7, MaxTokens: 2048, Timeout: 2 * time.Second}

func modelNames(n int) []string {
	models := make([]string, n)
	for i := range models {
		models[i] = fmt.Sprintf("model-%02d", i)
	}
	return models
}

func TestExecutor_FanOutRespectsLimit(t *testing.T) {
	for _, n := range []int{1, 5, 6, 12, 26} {
		t.Run(fmt.Sprintf("%d models", n), func(t *testing.T) {
			var inflight, peak atomic.Int32

			invoker := InvokerFunc(func(ctx context.Context, model string, messages []Message, params Params) (string, error) {
				current := inflight.Add(1)
				defer inflight.Add(-1)
				for {
					old := peak.Load()
					if current <= old || peak.CompareAndSwap(old, current) {
						break
					}
				}
				time.Sleep(15 * time.Millisecond)
				return "ok " + model, nil
			})

			executor := NewExecutor(invoker, 5, nil, zerolog.Nop())
			answers := executor.FanOut(context.Background(), StageAnswers, modelNames(n), nil, testParams)

			assert.Len(t, answers, n)
			assert.LessOrEqual(t, peak.Load(), int32(5))
		})
	}
}

func TestExecutor_FanOutOrderAndIsolation(t *testing.T) {
	models := modelNames(6)

	invoker := InvokerFunc(func(ctx context.Context, model string, messages []Message, params Params) (string, error) {
		switch model {
		case "model-01":
			return "", errors.New("boom")
		case "model-03":
			<-ctx.Done()
			return "", ctx.Err()
		case "model-00":
			// La risposta più lenta non deve cambiare l'ordine
			time.Sleep(30 * time.Millisecond)
		}
		return "answer " + model, nil
	})

	executor := NewExecutor(invoker, 5, nil, zerolog.Nop())
	params := testParams
	params.Timeout = 100 * time.Millisecond

	answers := executor.FanOut(context.Background(), StageAnswers, models, nil, params)

	require.Len(t, answers, 4)
	assert.Equal(t, []ModelAnswer{
		{Model: "model-00", Response: "answer model-00"},
		{Model: "model-02", Response: "answer model-02"},
		{Model: "model-04", Response: "answer model-04"},
		{Model: "model-05", Response: "answer model-05"},
	}, answers)
}

func TestExecutor_FanOutEmptyAndDuplicates(t *testing.T) {
	var calls atomic.Int32
	invoker := InvokerFunc(func(ctx context.Context, model string, messages []Message, params Params) (string, error) {
		calls.Add(1)
		return model, nil
	})
	executor := NewExecutor(invoker, 5, nil, zerolog.Nop())

	answers := executor.FanOut(context.Background(), StageAnswers, nil, nil, testParams)
	assert.NotNil(t, answers)
	assert.Empty(t, answers)
	assert.Equal(t, int32(0), calls.Load())

	answers = executor.FanOut(context.Background(), StageAnswers, []string{"a", "b", "a"}, nil, testParams)
	assert.Len(t, answers, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExecutor_InvokeTimeout(t *testing.T) {
	invoker := InvokerFunc(func(ctx context.Context, model string, messages []Message, params Params) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "too late", nil
		}
	})
	executor := NewExecutor(invoker, 1, nil, zerolog.Nop())

	params := testParams
	params.Timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := executor.Invoke(context.Background(), StageSynthesis, "slow", nil, params)

	var failure *Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, FailureTimeout, failure.Kind)
	assert.Equal(t, "slow", failure.Model)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
