package models

import (
	"time"

	"gorm.io/gorm"
)

// Client entity
type Client struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	EntrepriseID  uint       `gorm:"not null;index" json:"entreprise_id"` // tenant
	Entreprise    Entreprise `gorm:"foreignKey:EntrepriseID" json:"-"`
	Nom           string     `gorm:"not null;index" json:"nom"` // raison sociale ou nom
	NomCommercial string     `gorm:"index" json:"nom_commercial"`
	Contact       string     `json:"contact"` // nom du contact principal
	AdresseLigne1 string     `json:"adresse_ligne1"`
	AdresseLigne2 string     `json:"adresse_ligne2"`
	CodePostal    string     `json:"code_postal"`
	Ville         string     `json:"ville"`
	Pays          string     `gorm:"default:'FR'" json:"pays"`
	Telephone     string     `json:"telephone"`
	Email         string     `json:"email"`
	SIREN         string     `gorm:"index" json:"siren"`
	SIRET         string     `gorm:"index" json:"siret"`
	TVAIntra      string     `gorm:"index" json:"tva_intra"` // numéro TVA intracommunautaire
	// Jeton d'accès au portail client (lien self-service, sans session).
	PortalToken string         `gorm:"size:64;index" json:"portal_token"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// LoyaltyAccount accumule les points de fidélité d'un client.
// Alimenté en best-effort par les encaissements (POS et paiements en ligne).
type LoyaltyAccount struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClientID    uint      `gorm:"not null;uniqueIndex" json:"client_id"`
	Client      Client    `gorm:"foreignKey:ClientID" json:"-"`
	Points      int64     `gorm:"not null;default:0" json:"points"`
	LastAccrual time.Time `json:"last_accrual"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
