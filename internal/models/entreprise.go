package models

import "time"

// Entreprise = tenant. Toutes les données métier sont rattachées à une entreprise.
type Entreprise struct {
	ID              uint   `gorm:"primaryKey"`
	RaisonSociale   string `gorm:"not null;index"`
	NomCommercial   string `gorm:"index"`
	SIREN           string `gorm:"size:9;index"`
	SIRET           string `gorm:"size:14;index"`
	CodeNAF         string
	FormeJuridique  string
	RedevableTVA    bool
	TVAIntra        string // numéro TVA intracommunautaire
	AdresseLigne1   string
	AdresseLigne2   string
	CodePostal      string
	Ville           string
	Pays            string `gorm:"default:'FR'"`
	Telephone       string
	Email           string
	IBAN            string // IBAN/RIB affiché sur les factures
	LogoURL         string
	MentionsLegales string
	// Identifiant client chez le prestataire de paiement (Stripe customer id).
	StripeCustomerID string `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
