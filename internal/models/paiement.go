package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Moyens de paiement acceptés.
const (
	MoyenEspeces     = "especes"
	MoyenCheque      = "cheque"
	MoyenVirement    = "virement"
	MoyenCarte       = "carte"
	MoyenPrelevement = "prelevement"
)

// MoyenValide vérifie qu'un moyen de paiement fait partie de l'énumération.
func MoyenValide(moyen string) bool {
	switch moyen {
	case MoyenEspeces, MoyenCheque, MoyenVirement, MoyenCarte, MoyenPrelevement:
		return true
	}
	return false
}

// Paiement enregistré contre un document. Immuable une fois créé :
// les corrections passent par des écritures compensatoires (avoir),
// jamais par une modification de ligne.
type Paiement struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	DocumentID uint            `gorm:"not null;index" json:"document_id"`
	Montant    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"montant"`
	Date       time.Time       `gorm:"not null" json:"date"`
	Moyen      string          `gorm:"size:12;not null" json:"moyen"`
	// Référence externe (id de transaction du prestataire de paiement,
	// numéro de chèque...). Sert de clé de déduplication quand renseignée :
	// le ledger refuse un doublon (document, référence) non vide.
	Reference string    `gorm:"size:191;index" json:"reference"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}
