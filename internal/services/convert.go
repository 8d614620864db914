package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/money"
)

// ConvertQuote crée une facture à partir d'un devis accepté.
//
// Le devis source n'est ni modifié ni supprimé au-delà des back-références
// de traçabilité. Un devis déjà converti (ConvertedToInvoiceID non nul) est
// refusé : une seule facture par devis.
//
// Les lignes sont copiées telles quelles et les totaux recalculés; la
// politique d'arrondi par ligne garantit des totaux identiques au devis.
func (s *DocumentService) ConvertQuote(ctx context.Context, entrepriseID, devisID, userID uint) (*models.Document, error) {
	var facture models.Document
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var devis models.Document
		if err := forUpdate(tx).
			Preload("Lignes", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
			Where("id = ? AND entreprise_id = ?", devisID, entrepriseID).
			First(&devis).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return &NotFoundError{Entity: "devis", ID: devisID}
			}
			return err
		}
		if devis.Type != models.DocTypeDevis {
			return &ValidationError{Field: "devis_id", Reason: "not_a_devis"}
		}
		if devis.ConvertedToInvoiceID != nil {
			return &InvalidStateError{Statut: devis.Statut, Action: "conversion (devis déjà converti)"}
		}
		if devis.Statut != models.StatutAccepte {
			return &InvalidStateError{Statut: devis.Statut, Action: "conversion en facture"}
		}

		lignes := make([]models.DocumentLigne, len(devis.Lignes))
		for i, l := range devis.Lignes {
			lignes[i] = models.DocumentLigne{
				Position:       l.Position,
				ArticleID:      l.ArticleID,
				Designation:    l.Designation,
				Quantite:       l.Quantite,
				PrixUnitaireHT: l.PrixUnitaireHT,
				TVATaux:        l.TVATaux,
				RemisePourcent: l.RemisePourcent,
				MontantHT:      l.MontantHT,
				MontantTVA:     l.MontantTVA,
				MontantTTC:     l.MontantTTC,
			}
		}

		statut := s.InitialInvoiceStatus
		if statut != models.StatutEnvoye {
			statut = models.StatutBrouillon
		}
		emission := time.Now()
		numero, err := nextNumero(tx, entrepriseID, models.DocTypeFacture, emission)
		if err != nil {
			return err
		}
		facture = models.Document{
			EntrepriseID:       entrepriseID,
			ClientID:           devis.ClientID,
			Type:               models.DocTypeFacture,
			Numero:             numero,
			Statut:             statut,
			DateEmission:       emission,
			Lignes:             lignes,
			TotalHT:            devis.TotalHT,
			TotalTVA:           devis.TotalTVA,
			TotalTTC:           devis.TotalTTC,
			ResteAPayer:        money.ResteAPayer(devis.TotalTTC, decimal.Zero),
			Notes:              devis.Notes,
			ConditionsPaiement: devis.ConditionsPaiement,
			SourceDevisID:      &devis.ID,
		}
		if err := tx.Create(&facture).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Document{}).Where("id = ?", devis.ID).
			Update("converted_to_invoice_id", facture.ID).Error; err != nil {
			return err
		}
		return tx.Create(&models.AuditLog{
			EntrepriseID: entrepriseID,
			UserID:       userID,
			EntityType:   "Document",
			EntityID:     devis.ID,
			Action:       "conversion",
			NewValue:     facture.Numero,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &facture, nil
}
