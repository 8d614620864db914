// Package i18n : libellés FR (défaut) / EN pour les messages utilisateur
// et les statuts de documents. Tables figées à la compilation.
package i18n

import "strings"

// DetectLanguage maps an Accept-Language header to a supported language.
// French is the default.
func DetectLanguage(acceptLanguage string) string {
	lower := strings.ToLower(strings.TrimSpace(acceptLanguage))
	if strings.HasPrefix(lower, "en") {
		return "en"
	}
	return "fr"
}

var translations = map[string]map[string]string{
	"fr": {
		"required":         "Requis",
		"must_be_positive": "Doit être positif",
		"out_of_range":     "Hors limites",
		"not_found":        "Introuvable",
		"invalid_state":    "Opération interdite dans l'état actuel",
		"statut_brouillon": "Brouillon",
		"statut_envoye":    "Envoyé",
		"statut_accepte":   "Accepté",
		"statut_refuse":    "Refusé",
		"statut_paye":      "Payé",
		"statut_annule":    "Annulé",
		"type_devis":       "Devis",
		"type_facture":     "Facture",
		"type_avoir":       "Avoir",
	},
	"en": {
		"required":         "Required",
		"must_be_positive": "Must be positive",
		"out_of_range":     "Out of range",
		"not_found":        "Not found",
		"invalid_state":    "Operation not allowed in current state",
		"statut_brouillon": "Draft",
		"statut_envoye":    "Sent",
		"statut_accepte":   "Accepted",
		"statut_refuse":    "Refused",
		"statut_paye":      "Paid",
		"statut_annule":    "Cancelled",
		"type_devis":       "Quote",
		"type_facture":     "Invoice",
		"type_avoir":       "Credit note",
	},
}

// T translates a code for the given language. Unknown languages fall back to
// French; unknown codes fall back to the code itself.
func T(lang, code string) string {
	table, ok := translations[lang]
	if !ok {
		table = translations["fr"]
	}
	if msg, ok := table[code]; ok {
		return msg
	}
	if msg, ok := translations["fr"][code]; ok {
		return msg
	}
	return code
}

// StatusLabel returns the display label of a document status.
func StatusLabel(lang, statut string) string {
	return T(lang, "statut_"+statut)
}
