package conversation

import (
	"context"
	"strings"

	"github.com/biodoia/goleapcouncil/internal/council"
	"github.com/biodoia/goleapcouncil/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// recentWindow è il numero di messaggi considerati per rigenerare un titolo
const recentWindow = 3

// Service collega il council allo storage delle conversazioni
type Service struct {
	store   *Store
	council *council.Council
	logger  zerolog.Logger
}

// NewService crea un nuovo service
func NewService(store *Store, c *council.Council, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		council: c,
		logger:  logger.With().Str("component", "conversation").Logger(),
	}
}

// Store restituisce lo store sottostante
func (s *Service) Store() *Store {
	return s.store
}

// SendResult è la risposta di un messaggio in modalità batch
type SendResult struct {
	ConversationID uuid.UUID               `json:"conversation_id"`
	Stage1         []council.ModelAnswer   `json:"stage1"`
	Stage2         []council.JudgeRanking  `json:"stage2"`
	Stage3         council.SynthesisResult `json:"stage3"`
	Metadata       council.Metadata        `json:"metadata"`
	Title          string                  `json:"title"`
	IsFirstMessage bool                    `json:"is_first_message"`
}

// LoadPriorTurns restituisce tutti i turni salvati della conversazione
func (s *Service) LoadPriorTurns(ctx context.Context, id string) ([]council.Turn, error) {
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Turns(conv.Messages), nil
}

// SendMessage esegue una run completa e salva i due turni.
// Al primo messaggio il titolo viene generato in parallelo alla run.
func (s *Service) SendMessage(ctx context.Context, id, content string) (*SendResult, error) {
	conv, prior, err := s.prepare(ctx, id, content)
	if err != nil {
		return nil, err
	}
	isFirst := len(prior) == 0

	// La run prosegue anche se il client si disconnette
	ctx = context.WithoutCancel(ctx)

	var titleCh chan string
	if isFirst {
		titleCh = make(chan string, 1)
		go func() {
			titleCh <- s.council.GenerateTitle(ctx, content)
		}()
	}

	result := s.council.Run(ctx, content, prior)

	title := conv.Title
	if titleCh != nil {
		generated := <-titleCh
		if err := s.store.UpdateTitle(ctx, id, generated); err != nil {
			s.logger.Error().Err(err).Str("conversation_id", id).Msg("Failed to store title")
		} else {
			title = generated
		}
	}

	if err := s.store.AppendAssistantMessage(ctx, id, result); err != nil {
		return nil, err
	}

	if !isFirst && conv.Title == models.DefaultConversationTitle {
		if retitled, ok := s.retitle(ctx, id); ok {
			title = retitled
		}
	}

	return &SendResult{
		ConversationID: conv.ID,
		Stage1:         result.Stage1,
		Stage2:         result.Stage2,
		Stage3:         result.Stage3,
		Metadata:       result.Metadata,
		Title:          title,
		IsFirstMessage: isFirst,
	}, nil
}

// SendMessageStream avvia una run incrementale e restituisce gli eventi
// del council arricchiti dalla persistenza: il titolo viene salvato su
// title_complete e il turno assistant prima dell'evento terminale.
//
// Se ctx termina gli eventi rimanenti vengono scartati, ma la run e il
// salvataggio proseguono.
func (s *Service) SendMessageStream(ctx context.Context, id, content string) (<-chan council.Event, error) {
	_, prior, err := s.prepare(ctx, id, content)
	if err != nil {
		return nil, err
	}

	req := council.StreamRequest{Query: content, Prior: prior}
	if len(prior) == 0 {
		req.TitleFrom = content
	}

	runCtx := context.WithoutCancel(ctx)
	events := s.council.Stream(runCtx, req)
	out := make(chan council.Event, 16)

	go func() {
		defer close(out)

		consumerGone := false
		for ev := range events {
			switch {
			case ev.Type == council.EventTitleComplete:
				if err := s.store.UpdateTitle(runCtx, id, ev.Title); err != nil {
					s.logger.Error().Err(err).Str("conversation_id", id).Msg("Failed to store title")
				}
			case ev.Type.Terminal() && ev.Result != nil:
				if err := s.store.AppendAssistantMessage(runCtx, id, ev.Result); err != nil {
					s.logger.Error().Err(err).Str("conversation_id", id).Msg("Failed to store assistant message")
				}
			}

			if consumerGone {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				consumerGone = true
				s.logger.Debug().Str("conversation_id", id).Msg("Stream consumer gone, discarding events")
			}
		}
	}()

	return out, nil
}

// prepare valida il contenuto, carica la conversazione e salva il turno utente.
// Restituisce i turni precedenti a quello appena salvato.
func (s *Service) prepare(ctx context.Context, id, content string) (*models.Conversation, []council.Turn, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil, ErrEmptyContent
	}

	conv, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	prior := Turns(conv.Messages)

	if err := s.store.AppendUserMessage(ctx, id, content); err != nil {
		return nil, nil, err
	}
	return conv, prior, nil
}

// retitle rigenera il titolo dai turni utente tra gli ultimi messaggi salvati
func (s *Service) retitle(ctx context.Context, id string) (string, bool) {
	conv, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", id).Msg("Failed to reload conversation for title")
		return "", false
	}

	recent := conv.Messages
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}

	var b strings.Builder
	for _, msg := range recent {
		if msg.Role == models.RoleUser {
			b.WriteString("User: ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}
	if b.Len() == 0 {
		return "", false
	}

	title := s.council.GenerateTitle(ctx, b.String())
	if err := s.store.UpdateTitle(ctx, id, title); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", id).Msg("Failed to store regenerated title")
		return "", false
	}
	return title, true
}
