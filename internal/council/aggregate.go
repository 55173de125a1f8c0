package council

import (
	"math"
	"sort"
)

// Aggregate combina i ranking dei giudici in un rank medio per modello.
//
// La posizione è 1-based nella sequenza del singolo giudice; le etichette
// sconosciute vengono ignorate. I modelli mai citati non compaiono. A parità
// di media vince il modello osservato per primo, scorrendo i giudici in ordine.
func Aggregate(rankings []JudgeRanking, registry *LabelRegistry) []AggregateEntry {
	positions := make(map[string][]int)
	var order []string

	for _, ranking := range rankings {
		for i, label := range ranking.ParsedRanking {
			model, ok := registry.Model(label)
			if !ok {
				continue
			}
			if _, observed := positions[model]; !observed {
				order = append(order, model)
			}
			positions[model] = append(positions[model], i+1)
		}
	}

	entries := make([]AggregateEntry, 0, len(order))
	for _, model := range order {
		ranks := positions[model]
		sum := 0
		for _, rank := range ranks {
			sum += rank
		}
		entries = append(entries, AggregateEntry{
			Model:         model,
			AverageRank:   roundTo(float64(sum)/float64(len(ranks)), 2),
			RankingsCount: len(ranks),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].AverageRank < entries[j].AverageRank
	})

	return entries
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}
