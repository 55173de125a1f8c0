package council

import (
	"regexp"
	"strings"
)

// FinalRankingMarker introduce la sezione di ranking nella risposta di un giudice
const FinalRankingMarker = "FINAL RANKING:"

var (
	numberedLabelPattern = regexp.MustCompile(`\d+\.\s*Response [A-Z]`)
	labelPattern         = regexp.MustCompile(`Response [A-Z]`)
)

// ParseRanking estrae l'ordine delle etichette dal testo libero di un giudice.
//
// Se il marker è presente si considera solo il testo tra il primo marker e
// l'eventuale successivo, altrimenti tutto il testo. Le righe numerate "1. Response X" hanno precedenza; in loro
// assenza si raccolgono tutte le occorrenze di "Response X" in ordine, senza
// deduplicare. Un testo senza etichette produce una sequenza vuota.
func ParseRanking(text string) []string {
	section := text
	if _, after, found := strings.Cut(text, FinalRankingMarker); found {
		// Un marker ripetuto chiude la sezione
		section, _, _ = strings.Cut(after, FinalRankingMarker)
	}

	if numbered := numberedLabelPattern.FindAllString(section, -1); len(numbered) > 0 {
		parsed := make([]string, 0, len(numbered))
		for _, match := range numbered {
			parsed = append(parsed, labelPattern.FindString(match))
		}
		return parsed
	}

	parsed := labelPattern.FindAllString(section, -1)
	if parsed == nil {
		return []string{}
	}
	return parsed
}
