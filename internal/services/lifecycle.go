package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
)

// Transitions manuelles autorisées, par type de document.
// paye est absent volontairement : statut dérivé, posé par le ledger.
// annule est traité à part (possible depuis tout statut non terminal).
var manualTransitions = map[string]map[string][]string{
	models.DocTypeDevis: {
		models.StatutBrouillon: {models.StatutEnvoye},
		models.StatutEnvoye:    {models.StatutAccepte, models.StatutRefuse},
	},
	models.DocTypeFacture: {
		models.StatutBrouillon: {models.StatutEnvoye},
	},
	models.DocTypeAvoir: {
		models.StatutBrouillon: {models.StatutEnvoye},
	},
}

// CanTransition vérifie la table des transitions manuelles.
func CanTransition(docType, from, to string) bool {
	if to == models.StatutAnnule {
		return !models.EstTerminal(from)
	}
	if to == models.StatutPaye {
		return false
	}
	for _, allowed := range manualTransitions[docType][from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition applique une transition manuelle de statut et journalise le
// changement. userID = 0 pour une transition système.
func (s *DocumentService) Transition(ctx context.Context, entrepriseID, docID uint, target string, userID uint) (*models.Document, error) {
	var doc *models.Document
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		doc, err = s.getDocument(forUpdate(tx), entrepriseID, docID)
		if err != nil {
			return err
		}
		if doc.Statut == target {
			return &InvalidStateError{Statut: doc.Statut, Action: "transition vers " + target}
		}
		if !CanTransition(doc.Type, doc.Statut, target) {
			return &InvalidStateError{Statut: doc.Statut, Action: "transition vers " + target}
		}
		old := doc.Statut
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).
			Update("statut", target).Error; err != nil {
			return err
		}
		doc.Statut = target
		return tx.Create(&models.AuditLog{
			EntrepriseID: entrepriseID,
			UserID:       userID,
			EntityType:   "Document",
			EntityID:     doc.ID,
			Action:       "transition",
			OldValue:     old,
			NewValue:     target,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
