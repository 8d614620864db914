package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/money"
)

// RecordPaymentInput regroupe les champs d'enregistrement d'un paiement.
type RecordPaymentInput struct {
	EntrepriseID uint
	DocumentID   uint
	Montant      decimal.Decimal
	Moyen        string
	Date         time.Time
	Reference    string // id de transaction du prestataire, n° de chèque...
	Notes        string
	UserID       uint // 0 = webhook/système
}

// RecordPayment insère un paiement immuable puis recalcule le solde et le
// statut du document dans la même transaction : insertion, agrégat et mise à
// jour de statut forment une unité atomique. Deux enregistrements concurrents
// sur le même document sont sérialisés (mutex par document + FOR UPDATE sur
// postgres), aucun des deux ne peut observer un solde périmé.
//
// Le passage à paye est dérivé : posé dès que reste_a_payer atteint 0 sur une
// facture ou un avoir, idempotent si le document est déjà payé.
func (s *DocumentService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*models.Paiement, *models.Document, error) {
	if !in.Montant.IsPositive() {
		return nil, nil, &ValidationError{Field: "montant", Reason: "must_be_positive"}
	}
	if !models.MoyenValide(in.Moyen) {
		return nil, nil, &ValidationError{Field: "moyen", Reason: "unknown"}
	}
	if in.Date.IsZero() {
		in.Date = time.Now()
	}

	unlock := s.locks.lock(in.DocumentID)
	defer unlock()

	var paiement models.Paiement
	var doc *models.Document
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		doc, err = s.getDocument(forUpdate(tx), in.EntrepriseID, in.DocumentID)
		if err != nil {
			return err
		}
		if doc.Type == models.DocTypeDevis {
			return &InvalidStateError{Statut: doc.Statut, Action: "paiement sur un devis"}
		}
		if doc.Statut == models.StatutAnnule {
			return &InvalidStateError{Statut: doc.Statut, Action: "paiement"}
		}
		// Déduplication par référence externe (rejeu de webhook).
		if in.Reference != "" {
			var n int64
			if err := tx.Model(&models.Paiement{}).
				Where("document_id = ? AND reference = ?", in.DocumentID, in.Reference).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrDuplicateReference
			}
		}
		paiement = models.Paiement{
			DocumentID: in.DocumentID,
			Montant:    money.Round2(in.Montant),
			Date:       in.Date,
			Moyen:      in.Moyen,
			Reference:  in.Reference,
			Notes:      in.Notes,
		}
		if err := tx.Create(&paiement).Error; err != nil {
			return err
		}
		// Agrégat exact en décimal : l'historique d'un document reste court.
		var paiements []models.Paiement
		if err := tx.Where("document_id = ?", in.DocumentID).Find(&paiements).Error; err != nil {
			return err
		}
		totalPaye := decimal.Zero
		for _, p := range paiements {
			totalPaye = totalPaye.Add(p.Montant)
		}
		reste := money.ResteAPayer(doc.TotalTTC, totalPaye)
		updates := map[string]interface{}{"reste_a_payer": reste}
		if reste.IsZero() && doc.Statut != models.StatutPaye {
			updates["statut"] = models.StatutPaye
		}
		if err := tx.Model(&models.Document{}).Where("id = ?", doc.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		doc.ResteAPayer = reste
		if st, ok := updates["statut"]; ok {
			old := doc.Statut
			doc.Statut = st.(string)
			if err := tx.Create(&models.AuditLog{
				EntrepriseID: in.EntrepriseID,
				UserID:       in.UserID,
				EntityType:   "Document",
				EntityID:     doc.ID,
				Action:       "paiement",
				OldValue:     old,
				NewValue:     models.StatutPaye,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &paiement, doc, nil
}
