package resolver

import "strings"

// Fallbacks used when neither the manual rows nor the static tables
// carry a value. Italian is the store's default language.
const (
	fallbackName        = "Manuale Standard"
	fallbackDescription = "Manuale per ventilatore Ferrari"

	defaultRevision      = "001"
	defaultRevisionToken = "Rev001"
)

var manualNames = map[string]string{
	"MVC_STD":     "Manuale Ventilatore Standard",
	"ROLLOUT":     "Manuale Installazione Rollout",
	"SWINGOUT":    "Manuale Installazione Swingout",
	"MAINTENANCE": "Manuale Manutenzione",
	"TECHNICAL":   "Specifiche Tecniche",
}

var manualDescriptions = map[string]string{
	"MVC_STD":     "Manuale completo per l'installazione, l'uso e la manutenzione del ventilatore standard. Include istruzioni dettagliate per il montaggio, le specifiche tecniche e i controlli di sicurezza.",
	"ROLLOUT":     "Guida specifica per l'installazione del sistema rollout. Contiene schemi di montaggio, dimensioni di ingombro e procedure di collaudo.",
	"SWINGOUT":    "Istruzioni complete per l'installazione del sistema swingout. Include dettagli sui meccanismi di apertura e chiusura, manutenzione preventiva e risoluzione problemi.",
	"MAINTENANCE": "Guida alla manutenzione preventiva e correttiva. Include programmi di manutenzione, lista di controllo e ricambi consigliati.",
	"TECHNICAL":   "Specifiche tecniche dettagliate, diagrammi elettrici e schemi funzionali del ventilatore.",
}

// ResolveName picks the display name for a grouped manual: an explicit
// name stored on a manual row wins, then the static code table, then
// the fixed fallback.
func ResolveName(manualCode, nameFromRow string) string {
	if n := strings.TrimSpace(nameFromRow); n != "" {
		return n
	}
	if manualCode != "" {
		if n, ok := manualNames[manualCode]; ok {
			return n
		}
	}
	return fallbackName
}

// DefaultDescription is the per-code description used when a manual
// row carries none.
func DefaultDescription(manualCode string) string {
	if manualCode == "" {
		return fallbackDescription
	}
	if d, ok := manualDescriptions[manualCode]; ok {
		return d
	}
	return "Documentazione tecnica per " + manualCode
}

// BestDescription picks the display description from the per-language
// map: IT wins, then EN, then the first-inserted language (order gives
// insertion order), then the fixed fallback. This precedence is a
// business rule: Italian is the default store language.
func BestDescription(descriptions map[string]string, order []string) string {
	if d, ok := descriptions["IT"]; ok && d != "" {
		return d
	}
	if d, ok := descriptions["EN"]; ok && d != "" {
		return d
	}
	for _, lang := range order {
		if d, ok := descriptions[lang]; ok && d != "" {
			return d
		}
	}
	return fallbackDescription
}
