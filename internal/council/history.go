package council

import (
	"strings"
)

// NoHistory è il testo usato quando non ci sono turni precedenti
const NoHistory = "No previous conversation history."

// ellipsis marca un testo troncato
const ellipsis = "..."

// FormatHistory rende gli ultimi maxTurns turni come testo per i prompt.
// I turni assistant senza sintesi vengono saltati.
func FormatHistory(turns []Turn, maxTurns, maxChars int) string {
	if len(turns) == 0 {
		return NoHistory
	}

	if maxTurns > 0 && len(turns) > maxTurns {
		turns = turns[len(turns)-maxTurns:]
	}

	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleUser:
			lines = append(lines, "User: "+turn.Content)
		case RoleAssistant:
			if turn.Synthesis == "" {
				continue
			}
			lines = append(lines, "Assistant: "+truncate(turn.Synthesis, maxChars))
		}
	}

	return strings.Join(lines, "\n")
}

// truncate taglia s a max caratteri aggiungendo l'ellissi se più lungo
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + ellipsis
}
