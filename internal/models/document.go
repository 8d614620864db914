package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Types de documents commerciaux.
const (
	DocTypeDevis   = "devis"
	DocTypeFacture = "facture"
	DocTypeAvoir   = "avoir"
)

// Statuts du cycle de vie d'un document.
// paye est un statut dérivé : posé par le ledger quand reste_a_payer atteint 0,
// jamais par une transition manuelle.
const (
	StatutBrouillon = "brouillon"
	StatutEnvoye    = "envoye"
	StatutAccepte   = "accepte"
	StatutRefuse    = "refuse"
	StatutPaye      = "paye"
	StatutAnnule    = "annule"
)

// Document : devis, facture ou avoir. Possède ses lignes (cycle de vie en
// cascade) et référence ses paiements (historique immuable, jamais supprimé).
type Document struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EntrepriseID uint       `gorm:"not null;index:idx_entreprise_numero,unique,priority:1" json:"entreprise_id"` // tenant
	Entreprise   Entreprise `gorm:"foreignKey:EntrepriseID" json:"-"`
	ClientID     uint       `gorm:"not null;index" json:"client_id"`
	Client       Client     `gorm:"foreignKey:ClientID" json:"-"`
	Type         string     `gorm:"size:10;not null;index" json:"type"` // devis, facture, avoir
	// Numéro séquentiel lisible, unique par entreprise et par type.
	// Ex: "FAC-2026-00042". Attribué par la série de numérotation.
	Numero             string          `gorm:"size:20;not null;index:idx_entreprise_numero,unique,priority:2" json:"numero"`
	Statut             string          `gorm:"size:12;not null;default:'brouillon';index" json:"statut"`
	DateEmission       time.Time       `json:"date_emission"`
	DateEcheance       *time.Time      `json:"date_echeance,omitempty"`
	Lignes             []DocumentLigne `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" json:"lignes,omitempty"`
	Paiements          []Paiement      `gorm:"foreignKey:DocumentID" json:"paiements,omitempty"`
	TotalHT            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_ht"`
	TotalTVA           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_tva"`
	TotalTTC           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_ttc"`
	ResteAPayer        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"reste_a_payer"`
	Notes              string          `json:"notes"`
	ConditionsPaiement string          `json:"conditions_paiement"`
	// Traçabilité devis <-> facture. ConvertedToInvoiceID sert aussi de
	// garde contre la double conversion d'un devis.
	SourceDevisID        *uint     `gorm:"index" json:"source_devis_id,omitempty"`
	ConvertedToInvoiceID *uint     `gorm:"index" json:"converted_to_invoice_id,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DocumentLigne appartient à exactement un document.
// Quantité négative autorisée (lignes d'avoir) : le signe se propage
// sur les trois montants dérivés.
type DocumentLigne struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	DocumentID     uint            `gorm:"not null;index" json:"document_id"`
	Position       int             `gorm:"not null" json:"position"` // ordre d'affichage
	ArticleID      *uint           `json:"article_id,omitempty"`     // optionnel : ligne libre si nul
	Designation    string          `gorm:"not null" json:"designation"`
	Quantite       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"quantite"`
	PrixUnitaireHT decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"prix_unitaire_ht"`
	TVATaux        decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tva_taux"`        // en pourcent
	RemisePourcent decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"remise_pourcent"` // 0..100
	MontantHT      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"montant_ht"`     // calculé
	MontantTVA     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"montant_tva"`    // calculé
	MontantTTC     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"montant_ttc"`    // calculé
	CreatedAt      time.Time       `json:"-"`
	UpdatedAt      time.Time       `json:"-"`
}

// EstTerminal indique qu'aucune transition n'est possible depuis ce statut.
func EstTerminal(statut string) bool {
	switch statut {
	case StatutPaye, StatutAnnule, StatutRefuse:
		return true
	}
	return false
}

// DocumentNumberSeries : compteur par (entreprise, type, année).
// Incrémenté dans la transaction d'émission du document.
type DocumentNumberSeries struct {
	ID           uint   `gorm:"primaryKey"`
	EntrepriseID uint   `gorm:"not null;index:idx_series,unique,priority:1"`
	DocType      string `gorm:"size:10;not null;index:idx_series,unique,priority:2"`
	Annee        int    `gorm:"not null;index:idx_series,unique,priority:3"`
	Compteur     int64  `gorm:"not null;default:0"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
