package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Statuts d'abonnement, alignés sur ceux du prestataire de paiement.
const (
	AbonnementActive     = "active"
	AbonnementTrialing   = "trialing"
	AbonnementPastDue    = "past_due"
	AbonnementCanceled   = "canceled"
	AbonnementIncomplete = "incomplete"
	AbonnementUnpaid     = "unpaid"
)

// Abonnement reflète l'objet subscription du prestataire de paiement.
// Créé et mis à jour exclusivement par la réconciliation webhook;
// soft-delete à l'annulation.
type Abonnement struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	EntrepriseID uint       `gorm:"not null;index" json:"entreprise_id"`
	Entreprise   Entreprise `gorm:"foreignKey:EntrepriseID" json:"-"`
	Plan         string     `gorm:"size:20;not null;default:'solo'" json:"plan"`
	// Identifiants côté prestataire.
	StripeSubscriptionID string         `gorm:"size:191;not null;uniqueIndex" json:"stripe_subscription_id"`
	StripeCustomerID     string         `gorm:"size:191;index" json:"stripe_customer_id"`
	StripePriceID        string         `gorm:"size:191" json:"stripe_price_id"`
	Statut               string         `gorm:"size:32;not null;default:'active';index" json:"statut"`
	TrialEnd             *time.Time     `json:"trial_end,omitempty"`
	PeriodeDebut         *time.Time     `json:"periode_debut,omitempty"`
	PeriodeFin           *time.Time     `json:"periode_fin,omitempty"`
	CancelAtPeriodEnd    bool           `gorm:"default:false" json:"cancel_at_period_end"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// Paliers d'abonnement proposés.
const (
	PlanSolo    = "solo"
	PlanPro     = "pro"
	PlanPremium = "premium"
)

// PlanTier décrit un palier de tarification.
type PlanTier struct {
	Nom         string          `json:"nom"`
	PrixMensuel decimal.Decimal `json:"prix_mensuel"` // TTC, EUR
	MaxClients  int             `json:"max_clients"`  // 0 = illimité
	MaxUsers    int             `json:"max_users"`
}

// planTiers est la table de tarification, figée au démarrage du process.
var planTiers = map[string]PlanTier{
	PlanSolo:    {Nom: PlanSolo, PrixMensuel: decimal.NewFromFloat(9.90), MaxClients: 50, MaxUsers: 1},
	PlanPro:     {Nom: PlanPro, PrixMensuel: decimal.NewFromFloat(24.90), MaxClients: 500, MaxUsers: 5},
	PlanPremium: {Nom: PlanPremium, PrixMensuel: decimal.NewFromFloat(49.90), MaxClients: 0, MaxUsers: 0},
}

// TierFor retourne le palier pour un nom de plan, ou le palier solo par défaut.
func TierFor(plan string) PlanTier {
	if t, ok := planTiers[plan]; ok {
		return t
	}
	return planTiers[PlanSolo]
}
