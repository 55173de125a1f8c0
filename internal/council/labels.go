package council

import (
	"encoding/json"
	"fmt"
)

// MaxLabels è la dimensione dello spazio delle etichette (A-Z)
const MaxLabels = 26

// labelPrefix precede la lettera in ogni etichetta
const labelPrefix = "Response "

// LabelName restituisce l'etichetta per la posizione i (0 → "Response A")
func LabelName(i int) string {
	return labelPrefix + string(rune('A'+i))
}

// LabelRegistry mappa in modo biunivoco etichette e modelli di una run.
// È costruito una volta dopo lo stage 1 e poi usato in sola lettura.
type LabelRegistry struct {
	labels  []string
	byLabel map[string]string
	byModel map[string]string
}

// NewLabelRegistry assegna le etichette nell'ordine delle risposte
func NewLabelRegistry(answers []ModelAnswer) (*LabelRegistry, error) {
	if len(answers) > MaxLabels {
		return nil, fmt.Errorf("%w: %d answers", ErrTooManyMembers, len(answers))
	}

	r := &LabelRegistry{
		labels:  make([]string, 0, len(answers)),
		byLabel: make(map[string]string, len(answers)),
		byModel: make(map[string]string, len(answers)),
	}

	for i, answer := range answers {
		if _, dup := r.byModel[answer.Model]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, answer.Model)
		}
		label := LabelName(i)
		r.labels = append(r.labels, label)
		r.byLabel[label] = answer.Model
		r.byModel[answer.Model] = label
	}

	return r, nil
}

func emptyRegistry() *LabelRegistry {
	r, _ := NewLabelRegistry(nil)
	return r
}

// Model restituisce il modello dietro un'etichetta
func (r *LabelRegistry) Model(label string) (string, bool) {
	if r == nil {
		return "", false
	}
	model, ok := r.byLabel[label]
	return model, ok
}

// Label restituisce l'etichetta assegnata a un modello
func (r *LabelRegistry) Label(model string) (string, bool) {
	if r == nil {
		return "", false
	}
	label, ok := r.byModel[model]
	return label, ok
}

// Labels restituisce le etichette in ordine di assegnazione
func (r *LabelRegistry) Labels() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.labels...)
}

// Len restituisce il numero di etichette
func (r *LabelRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.labels)
}

// Map restituisce una copia della mappa etichetta → modello
func (r *LabelRegistry) Map() map[string]string {
	out := make(map[string]string, r.Len())
	if r == nil {
		return out
	}
	for label, model := range r.byLabel {
		out[label] = model
	}
	return out
}

// MarshalJSON serializza il registry come oggetto {"Response A": "model"}
func (r *LabelRegistry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// UnmarshalJSON ricostruisce il registry ordinando le etichette per lettera
func (r *LabelRegistry) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	answers := make([]ModelAnswer, 0, len(raw))
	for i := 0; i < MaxLabels && len(answers) < len(raw); i++ {
		model, ok := raw[LabelName(i)]
		if !ok {
			return fmt.Errorf("label registry has a gap at %s", LabelName(i))
		}
		answers = append(answers, ModelAnswer{Model: model})
	}
	if len(answers) != len(raw) {
		return fmt.Errorf("label registry contains unknown labels")
	}

	rebuilt, err := NewLabelRegistry(answers)
	if err != nil {
		return err
	}
	*r = *rebuilt
	return nil
}
