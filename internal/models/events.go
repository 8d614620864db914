package models

import "time"

// Statut de traitement d'un événement webhook.
const (
	EventStarted   = "started"
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
)

// ProcessedEvent : journal d'idempotence des événements du prestataire de
// paiement, clé unique = id d'événement côté prestataire. Un id déjà marqué
// succeeded est ignoré au rejeu (aucune mutation, pas de double accrual).
type ProcessedEvent struct {
	ID        uint   `gorm:"primaryKey"`
	EventID   string `gorm:"size:191;not null;uniqueIndex"`
	EventType string `gorm:"size:64;not null;index"`
	Statut    string `gorm:"size:12;not null;default:'started'"`
	LastError string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
