package council

import (
	"context"
	"time"

	"github.com/biodoia/goleapcouncil/internal/stats"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Executor esegue invocazioni singole o in fan-out con concorrenza limitata
type Executor struct {
	invoker Invoker
	limit   int
	metrics *stats.Metrics
	logger  zerolog.Logger
}

// NewExecutor crea un nuovo Executor. metrics può essere nil.
func NewExecutor(invoker Invoker, limit int, metrics *stats.Metrics, logger zerolog.Logger) *Executor {
	if limit <= 0 {
		limit = 1
	}
	return &Executor{
		invoker: invoker,
		limit:   limit,
		metrics: metrics,
		logger:  logger,
	}
}

// Invoke esegue una singola invocazione entro params.Timeout.
// Qualsiasi errore viene restituito come *Failure.
func (e *Executor) Invoke(ctx context.Context, stage, model string, messages []Message, params Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	e.metrics.IncInflight()
	defer e.metrics.DecInflight()

	start := time.Now()
	content, err := e.invoker.Invoke(ctx, model, messages, params)
	duration := time.Since(start)

	if err != nil {
		failure := Classify(model, err)
		e.metrics.RecordInvocation(model, string(failure.Kind), duration)
		e.logger.Warn().
			Err(failure.Err).
			Str("stage", stage).
			Str("model", model).
			Str("kind", string(failure.Kind)).
			Dur("duration", duration).
			Msg("Model invocation failed")
		return "", failure
	}

	e.metrics.RecordInvocation(model, stats.OutcomeSuccess, duration)
	return content, nil
}

// FanOut invoca tutti i modelli con al massimo limit invocazioni in volo.
// Restituisce solo le risposte riuscite, nell'ordine dei modelli richiesti.
// I modelli duplicati vengono invocati una sola volta.
func (e *Executor) FanOut(ctx context.Context, stage string, models []string, messages []Message, params Params) []ModelAnswer {
	if len(models) == 0 {
		return []ModelAnswer{}
	}

	unique := make([]string, 0, len(models))
	seen := make(map[string]struct{}, len(models))
	for _, model := range models {
		if _, dup := seen[model]; dup {
			continue
		}
		seen[model] = struct{}{}
		unique = append(unique, model)
	}

	// Ogni goroutine scrive solo nel proprio slot
	contents := make([]string, len(unique))
	succeeded := make([]bool, len(unique))

	var g errgroup.Group
	g.SetLimit(e.limit)

	for i, model := range unique {
		g.Go(func() error {
			content, err := e.Invoke(ctx, stage, model, messages, params)
			if err == nil {
				contents[i] = content
				succeeded[i] = true
			}
			// Un fallimento non deve cancellare le invocazioni sorelle
			return nil
		})
	}
	_ = g.Wait()

	answers := make([]ModelAnswer, 0, len(unique))
	for i, model := range unique {
		if succeeded[i] {
			answers = append(answers, ModelAnswer{Model: model, Response: contents[i]})
		}
	}
	return answers
}
