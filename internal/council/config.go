package council

import (
	"fmt"
	"time"
)

// Config descrive la composizione del council e i parametri di invocazione.
// Viene iniettata nel Council alla costruzione.
type Config struct {
	Models        []string
	Chairman      string
	TitleModel    string
	MaxConcurrent int

	Temperature float64
	MaxTokens   int
	Timeout     time.Duration

	TitleMaxTokens int
	TitleTimeout   time.Duration

	HistoryTurns   int
	HistoryChars   int
	SynthesisChars int
}

// DefaultConfig restituisce la composizione di default su Groq
func DefaultConfig() Config {
	return Config{
		Models: []string{
			"llama-3.1-8b-instant",
			"llama-3.3-70b-versatile",
			"openai/gpt-oss-120b",
			"openai/gpt-oss-20b",
		},
		Chairman:       "llama-3.3-70b-versatile",
		TitleModel:     "groq/compound-mini",
		MaxConcurrent:  5,
		Temperature:    0.7,
		MaxTokens:      2048,
		Timeout:        120 * time.Second,
		TitleMaxTokens: 30,
		TitleTimeout:   30 * time.Second,
		HistoryTurns:   6,
		HistoryChars:   200,
		SynthesisChars: 500,
	}
}

// Validate verifica la configurazione
func (c Config) Validate() error {
	if len(c.Models) == 0 {
		return ErrNoCouncil
	}
	if len(c.Models) > MaxLabels {
		return fmt.Errorf("%w: %d members, max %d", ErrTooManyMembers, len(c.Models), MaxLabels)
	}

	seen := make(map[string]struct{}, len(c.Models))
	for _, model := range c.Models {
		if model == "" {
			return fmt.Errorf("%w: empty model id", ErrInvalidConfig)
		}
		if _, dup := seen[model]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, model)
		}
		seen[model] = struct{}{}
	}

	if c.Chairman == "" {
		return ErrNoChairman
	}
	if c.TitleModel == "" {
		return fmt.Errorf("%w: title model is required", ErrInvalidConfig)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("%w: max concurrent must be positive", ErrInvalidConfig)
	}
	if c.MaxTokens <= 0 || c.TitleMaxTokens <= 0 {
		return fmt.Errorf("%w: token budgets must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 || c.TitleTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.HistoryTurns <= 0 || c.HistoryChars <= 0 || c.SynthesisChars <= 0 {
		return fmt.Errorf("%w: history and synthesis limits must be positive", ErrInvalidConfig)
	}

	return nil
}

// stageParams restituisce i parametri di invocazione per stage 1, 2 e 3
func (c Config) stageParams() Params {
	return Params{
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
	}
}

// titleParams restituisce i parametri per la generazione del titolo
func (c Config) titleParams() Params {
	return Params{
		Temperature: c.Temperature,
		MaxTokens:   c.TitleMaxTokens,
		Timeout:     c.TitleTimeout,
	}
}
