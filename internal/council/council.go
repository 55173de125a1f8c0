package council

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/biodoia/goleapcouncil/internal/stats"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Nomi degli stage usati in log e metriche
const (
	StageAnswers   = "stage1"
	StageRankings  = "stage2"
	StageSynthesis = "stage3"
	StageTitle     = "title"
)

// titleMaxChars è la lunghezza massima di un titolo generato
const titleMaxChars = 50

// Council orchestra le tre fasi: risposte, ranking anonimo, sintesi
type Council struct {
	cfg      Config
	executor *Executor
	metrics  *stats.Metrics
	logger   zerolog.Logger
}

// Option configura un Council
type Option func(*Council)

// WithMetrics abilita le metriche Prometheus
func WithMetrics(metrics *stats.Metrics) Option {
	return func(c *Council) { c.metrics = metrics }
}

// WithLogger sostituisce il logger di default
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Council) { c.logger = logger }
}

// New crea un nuovo Council dopo aver validato la configurazione
func New(cfg Config, invoker Invoker, opts ...Option) (*Council, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if invoker == nil {
		return nil, fmt.Errorf("%w: invoker is required", ErrInvalidConfig)
	}

	c := &Council{
		cfg:    cfg,
		logger: log.With().Str("component", "council").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.executor = NewExecutor(invoker, cfg.MaxConcurrent, c.metrics, c.logger)
	return c, nil
}

// Config restituisce la configurazione del council
func (c *Council) Config() Config {
	return c.cfg
}

// Run esegue la pipeline completa in modalità batch.
//
// Le invocazioni non vengono interrotte se il chiamante abbandona ctx:
// terminano per conto proprio o per timeout.
func (c *Council) Run(ctx context.Context, query string, prior []Turn) *Result {
	ctx = context.WithoutCancel(ctx)
	hadContext := len(prior) > 0
	history := c.formatHistory(prior)

	if hadContext {
		c.logger.Info().Int("previous_turns", len(prior)).Msg("Using conversation history")
	}

	answers := c.Stage1(ctx, query, history)
	if len(answers) == 0 {
		c.metrics.RecordRun(stats.OutcomeError)
		c.logger.Error().Strs("models", c.cfg.Models).Msg("All council models failed stage 1")
		return errorResult(ErrAllModelsFailed, hadContext)
	}

	rankings, registry, err := c.Stage2(ctx, query, history, answers)
	if err != nil {
		c.metrics.RecordRun(stats.OutcomeError)
		c.logger.Error().Err(err).Msg("Stage 2 failed")
		return errorResult(err, hadContext)
	}

	aggregate := Aggregate(rankings, registry)
	synthesis := c.Stage3(ctx, query, history, answers, rankings)

	c.metrics.RecordRun(stats.OutcomeComplete)

	return &Result{
		Stage1: answers,
		Stage2: rankings,
		Stage3: synthesis,
		Metadata: Metadata{
			LabelToModel:      registry,
			AggregateRankings: aggregate,
			HadContext:        hadContext,
		},
	}
}

// Stage1 raccoglie le risposte indipendenti dei membri.
// history vuota significa nessun contesto.
func (c *Council) Stage1(ctx context.Context, query, history string) []ModelAnswer {
	start := time.Now()
	defer c.observeStage(StageAnswers, start)

	messages, err := answerMessages(query, history)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build stage 1 prompt")
		return []ModelAnswer{}
	}

	answers := c.executor.FanOut(ctx, StageAnswers, c.cfg.Models, messages, c.cfg.stageParams())

	c.logger.Info().
		Int("requested", len(c.cfg.Models)).
		Int("answered", len(answers)).
		Dur("duration", time.Since(start)).
		Msg("Stage 1 completed")

	return answers
}

// Stage2 anonimizza le risposte e raccoglie i ranking dei giudici.
// Un insieme vuoto di giudici non è un errore.
func (c *Council) Stage2(ctx context.Context, query, history string, answers []ModelAnswer) ([]JudgeRanking, *LabelRegistry, error) {
	start := time.Now()
	defer c.observeStage(StageRankings, start)

	registry, err := NewLabelRegistry(answers)
	if err != nil {
		return nil, nil, err
	}

	messages, err := rankingMessages(query, history, answers, registry)
	if err != nil {
		return nil, nil, err
	}

	judged := c.executor.FanOut(ctx, StageRankings, c.cfg.Models, messages, c.cfg.stageParams())

	rankings := make([]JudgeRanking, 0, len(judged))
	for _, judgement := range judged {
		rankings = append(rankings, JudgeRanking{
			Model:         judgement.Model,
			Ranking:       judgement.Response,
			ParsedRanking: ParseRanking(judgement.Response),
		})
	}

	c.logger.Info().
		Int("judges", len(rankings)).
		Int("labels", registry.Len()).
		Dur("duration", time.Since(start)).
		Msg("Stage 2 completed")

	return rankings, registry, nil
}

// Stage3 chiede al chairman la sintesi finale.
// In caso di fallimento restituisce il testo sentinella, mai un errore.
func (c *Council) Stage3(ctx context.Context, query, history string, answers []ModelAnswer, rankings []JudgeRanking) SynthesisResult {
	start := time.Now()
	defer c.observeStage(StageSynthesis, start)

	fallback := SynthesisResult{Model: c.cfg.Chairman, Response: SynthesisFailureText}

	messages, err := chairmanMessages(query, history, answers, rankings, c.cfg.SynthesisChars)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build chairman prompt")
		return fallback
	}

	content, err := c.executor.Invoke(ctx, StageSynthesis, c.cfg.Chairman, messages, c.cfg.stageParams())
	if err != nil {
		return fallback
	}

	c.logger.Info().
		Str("chairman", c.cfg.Chairman).
		Dur("duration", time.Since(start)).
		Msg("Stage 3 completed")

	return SynthesisResult{Model: c.cfg.Chairman, Response: content}
}

// GenerateTitle genera un titolo breve per il testo indicato.
// In caso di fallimento usa le prime quattro parole del testo.
func (c *Council) GenerateTitle(ctx context.Context, text string) string {
	ctx = context.WithoutCancel(ctx)

	messages, err := titleMessages(text)
	if err != nil {
		return FallbackTitle(text)
	}

	content, err := c.executor.Invoke(ctx, StageTitle, c.cfg.TitleModel, messages, c.cfg.titleParams())
	if err != nil {
		return FallbackTitle(text)
	}

	return CleanTitle(content)
}

// CleanTitle normalizza il titolo restituito dal modello
func CleanTitle(raw string) string {
	title := strings.Trim(strings.TrimSpace(raw), `"'`)

	runes := []rune(title)
	if len(runes) > titleMaxChars {
		title = string(runes[:titleMaxChars-len(ellipsis)]) + ellipsis
	}

	if title == "" {
		return DefaultTitle
	}
	return title
}

// FallbackTitle restituisce le prime quattro parole del testo seguite dall'ellissi
func FallbackTitle(text string) string {
	words := strings.Fields(text)
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ") + ellipsis
}

func (c *Council) formatHistory(prior []Turn) string {
	if len(prior) == 0 {
		return ""
	}
	return FormatHistory(prior, c.cfg.HistoryTurns, c.cfg.HistoryChars)
}

func (c *Council) observeStage(stage string, start time.Time) {
	c.metrics.RecordStage(stage, time.Since(start))
}
