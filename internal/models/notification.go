package models

import "time"

// Notification à destination d'une entreprise (tableau de bord / email).
// Écrites en best-effort par les effets de bord de la réconciliation :
// un échec d'écriture ne doit jamais faire échouer le traitement principal.
type Notification struct {
	ID           uint       `gorm:"primaryKey"`
	EntrepriseID uint       `gorm:"not null;index"`
	Entreprise   Entreprise `gorm:"foreignKey:EntrepriseID"`
	Type         string     // ex: "abonnement", "paiement", "essai"
	Titre        string
	Message      string
	Lue          bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuditLog : trace des transitions de statut et conversions.
type AuditLog struct {
	ID           uint   `gorm:"primaryKey"`
	EntrepriseID uint   `gorm:"index"`
	UserID       uint   // qui a fait la modification (0 = système/webhook)
	EntityType   string // ex: "Document", "Abonnement"
	EntityID     uint
	Action       string // ex: "transition", "conversion", "paiement"
	OldValue     string
	NewValue     string
	CreatedAt    time.Time
}
