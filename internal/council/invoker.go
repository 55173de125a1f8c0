package council

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/biodoia/goleapcouncil/internal/providers"
	"github.com/biodoia/goleapcouncil/internal/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Params sono i parametri di una singola invocazione
type Params struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Invoker chiama un modello e restituisce il contenuto o una *Failure
type Invoker interface {
	Invoke(ctx context.Context, model string, messages []Message, params Params) (string, error)
}

// InvokerFunc adatta una funzione all'interfaccia Invoker
type InvokerFunc func(ctx context.Context, model string, messages []Message, params Params) (string, error)

// Invoke implementa Invoker
func (f InvokerFunc) Invoke(ctx context.Context, model string, messages []Message, params Params) (string, error) {
	return f(ctx, model, messages, params)
}

// ProviderInvoker implementa Invoker sopra il registry dei provider
type ProviderInvoker struct {
	registry *providers.Registry
	limiter  ratelimit.Limiter
	logger   zerolog.Logger
}

// NewProviderInvoker crea un nuovo ProviderInvoker. limiter può essere nil.
func NewProviderInvoker(registry *providers.Registry, limiter ratelimit.Limiter) *ProviderInvoker {
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	return &ProviderInvoker{
		registry: registry,
		limiter:  limiter,
		logger:   log.With().Str("component", "invoker").Logger(),
	}
}

// Invoke risolve il provider del modello, attende il rate limiter e
// chiama la chat completion entro il timeout dell'invocazione
func (p *ProviderInvoker) Invoke(ctx context.Context, model string, messages []Message, params Params) (string, error) {
	if params.Timeout <= 0 {
		return "", &Failure{Model: model, Kind: FailureTimeout, Err: errors.New("timeout is mandatory")}
	}

	ctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	provider, err := p.registry.Resolve(model)
	if err != nil {
		return "", &Failure{Model: model, Kind: FailureConnection, Err: err}
	}

	if err := p.limiter.Wait(ctx, provider.Name()); err != nil {
		return "", &Failure{Model: model, Kind: FailureTimeout, Err: fmt.Errorf("rate limited: %w", err)}
	}

	temperature := params.Temperature
	maxTokens := params.MaxTokens
	topP := 1.0

	start := time.Now()
	resp, err := provider.ChatCompletion(ctx, &providers.ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: &temperature,
		TopP:        &topP,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		p.registry.RecordError(provider.Name())
		return "", Classify(model, err)
	}

	content, err := resp.Content()
	if err != nil {
		p.registry.RecordError(provider.Name())
		return "", &Failure{Model: model, Kind: FailureMalformed, Err: err}
	}

	p.registry.RecordSuccess(provider.Name(), time.Since(start))

	p.logger.Debug().
		Str("provider", provider.Name()).
		Str("model", model).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("Model invocation completed")

	return content, nil
}
