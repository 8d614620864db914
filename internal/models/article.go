package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Article : produit ou prestation vendable.
type Article struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EntrepriseID uint       `gorm:"not null;index:idx_entreprise_reference,unique,priority:1" json:"entreprise_id"` // tenant
	Entreprise   Entreprise `gorm:"foreignKey:EntrepriseID" json:"-"`
	// Référence unique par entreprise. Identifiant lisible (ex: "PRE-001").
	Reference      string          `gorm:"size:40;not null;index:idx_entreprise_reference,unique,priority:2" json:"reference"`
	Designation    string          `gorm:"not null" json:"designation"`
	PrixUnitaireHT decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"prix_unitaire_ht"`
	TVATaux        decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tva_taux"` // en pourcent, ex: 20.00
	Unite          string          `gorm:"default:'pièce'" json:"unite"`               // pièce, heure, kg, m...
	// Quantité en stock. Décrémentée par les ventes POS; non gérée pour les prestations.
	Stock      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"stock"`
	SuiviStock bool            `gorm:"not null;default:false" json:"suivi_stock"`
	Devise     string          `gorm:"not null;default:'EUR'" json:"devise"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
