package council

import (
	"github.com/biodoia/goleapcouncil/internal/providers"
)

// Message è una coppia ruolo/contenuto inviata a un modello
type Message = providers.Message

// Ruoli dei turni di conversazione
const (
	RoleSystem    = providers.RoleSystem
	RoleUser      = providers.RoleUser
	RoleAssistant = providers.RoleAssistant
)

// Turn è un turno precedente della conversazione.
// Per i turni assistant Synthesis contiene la risposta del chairman.
type Turn struct {
	Role      string `json:"role"`
	Content   string `json:"content,omitempty"`
	Synthesis string `json:"synthesis,omitempty"`
}

// ModelAnswer è la risposta di un membro allo stage 1
type ModelAnswer struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// JudgeRanking è la valutazione di un giudice allo stage 2
type JudgeRanking struct {
	Model         string   `json:"model"`
	Ranking       string   `json:"ranking"`
	ParsedRanking []string `json:"parsed_ranking"`
}

// AggregateEntry è il rank medio di un modello su tutti i giudici che lo hanno citato
type AggregateEntry struct {
	Model         string  `json:"model"`
	AverageRank   float64 `json:"average_rank"`
	RankingsCount int     `json:"rankings_count"`
}

// SynthesisResult è la risposta finale del chairman
type SynthesisResult struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// Metadata accompagna il risultato di una run
type Metadata struct {
	LabelToModel      *LabelRegistry   `json:"label_to_model"`
	AggregateRankings []AggregateEntry `json:"aggregate_rankings"`
	HadContext        bool             `json:"had_context"`
}

// Result è il risultato completo di una run del council
type Result struct {
	Stage1   []ModelAnswer   `json:"stage1"`
	Stage2   []JudgeRanking  `json:"stage2"`
	Stage3   SynthesisResult `json:"stage3"`
	Metadata Metadata        `json:"metadata"`

	// Err è valorizzato solo quando la run termina nello stato di errore
	Err error `json:"-"`
}

// Failed indica se la run è terminata nello stato di errore
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Sentinelle di stage 3 e di errore totale
const (
	ErrorModel           = "error"
	AllModelsFailedText  = "All models failed to respond. Please try again."
	SynthesisFailureText = "Error: Unable to generate final synthesis."
	DefaultTitle         = "New Conversation"
)

// errorResult costruisce il risultato terminale per uno stage 1 vuoto
func errorResult(err error, hadContext bool) *Result {
	return &Result{
		Stage1: []ModelAnswer{},
		Stage2: []JudgeRanking{},
		Stage3: SynthesisResult{Model: ErrorModel, Response: AllModelsFailedText},
		Metadata: Metadata{
			LabelToModel:      emptyRegistry(),
			AggregateRankings: []AggregateEntry{},
			HadContext:        hadContext,
		},
		Err: err,
	}
}
