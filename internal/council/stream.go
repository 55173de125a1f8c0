package council

import (
	"context"
	"fmt"

	"github.com/biodoia/goleapcouncil/internal/stats"
)

// EventType identifica un evento di avanzamento della pipeline
type EventType string

const (
	EventStage1Start    EventType = "stage1_start"
	EventStage1Complete EventType = "stage1_complete"
	EventStage2Start    EventType = "stage2_start"
	EventStage2Complete EventType = "stage2_complete"
	EventStage3Start    EventType = "stage3_start"
	EventStage3Complete EventType = "stage3_complete"
	EventTitleComplete  EventType = "title_complete"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
)

// Terminal indica se l'evento chiude lo stream
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// Event è un evento di avanzamento. Data dipende dal tipo:
// []ModelAnswer, []JudgeRanking, SynthesisResult o TitlePayload.
type Event struct {
	Type     EventType `json:"type"`
	Data     any       `json:"data,omitempty"`
	Metadata *Metadata `json:"metadata,omitempty"`
	Message  string    `json:"message,omitempty"`

	// Result è valorizzato sugli eventi terminali
	Result *Result `json:"-"`

	// Title è valorizzato su title_complete
	Title string `json:"-"`
}

// TitlePayload è il contenuto di title_complete
type TitlePayload struct {
	Title string `json:"title"`
}

// StreamRequest descrive una run in modalità incrementale
type StreamRequest struct {
	Query string
	Prior []Turn

	// TitleFrom, se non vuoto, avvia la generazione del titolo
	// in parallelo allo stage 1
	TitleFrom string
}

// Stream esegue la pipeline emettendo un evento per ogni transizione.
//
// Il canale viene chiuso dopo esattamente un evento complete o error.
// Se ctx termina, gli eventi successivi vengono scartati e nessuno stage
// nuovo viene avviato; le invocazioni già in corso terminano da sole.
func (c *Council) Stream(ctx context.Context, req StreamRequest) <-chan Event {
	out := make(chan Event, 16)

	go func() {
		defer close(out)

		send := func(ev Event) bool {
			if ctx.Err() != nil {
				return false
			}
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		defer func() {
			if r := recover(); r != nil {
				c.metrics.RecordRun(stats.OutcomeError)
				c.logger.Error().Interface("panic", r).Msg("Council stream panicked")
				send(Event{Type: EventError, Message: fmt.Sprintf("internal error: %v", r)})
			}
		}()

		c.stream(ctx, req, send)
	}()

	return out
}

func (c *Council) stream(ctx context.Context, req StreamRequest, send func(Event) bool) {
	runCtx := context.WithoutCancel(ctx)
	hadContext := len(req.Prior) > 0
	history := c.formatHistory(req.Prior)

	var titleCh chan string
	if req.TitleFrom != "" {
		titleCh = make(chan string, 1)
		go func() {
			titleCh <- c.GenerateTitle(runCtx, req.TitleFrom)
		}()
	}

	if !send(Event{Type: EventStage1Start}) {
		return
	}
	answers := c.Stage1(runCtx, req.Query, history)
	if !send(Event{Type: EventStage1Complete, Data: answers}) {
		return
	}

	if len(answers) == 0 {
		c.metrics.RecordRun(stats.OutcomeError)
		result := errorResult(ErrAllModelsFailed, hadContext)
		send(Event{Type: EventError, Message: AllModelsFailedText, Result: result})
		return
	}

	if !send(Event{Type: EventStage2Start}) {
		return
	}
	rankings, registry, err := c.Stage2(runCtx, req.Query, history, answers)
	if err != nil {
		c.metrics.RecordRun(stats.OutcomeError)
		send(Event{Type: EventError, Message: err.Error(), Result: errorResult(err, hadContext)})
		return
	}
	metadata := Metadata{
		LabelToModel:      registry,
		AggregateRankings: Aggregate(rankings, registry),
		HadContext:        hadContext,
	}
	if !send(Event{Type: EventStage2Complete, Data: rankings, Metadata: &metadata}) {
		return
	}

	if !send(Event{Type: EventStage3Start}) {
		return
	}
	synthesis := c.Stage3(runCtx, req.Query, history, answers, rankings)
	if !send(Event{Type: EventStage3Complete, Data: synthesis}) {
		return
	}

	if titleCh != nil {
		title := <-titleCh
		if !send(Event{Type: EventTitleComplete, Data: TitlePayload{Title: title}, Title: title}) {
			return
		}
	}

	c.metrics.RecordRun(stats.OutcomeComplete)
	send(Event{
		Type: EventComplete,
		Result: &Result{
			Stage1:   answers,
			Stage2:   rankings,
			Stage3:   synthesis,
			Metadata: metadata,
		},
	})
}
