package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/money"
)

// DocumentService porte le cycle de vie des documents : création,
// transitions de statut, conversion devis->facture et ledger de paiements.
type DocumentService struct {
	DB *gorm.DB
	// Statut initial d'une facture issue d'une conversion (brouillon ou envoye).
	InitialInvoiceStatus string

	locks docLocks
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{DB: db, InitialInvoiceStatus: models.StatutBrouillon}
}

// docLocks sérialise les écritures par document dans le process.
// Complète le verrou de ligne SQL (FOR UPDATE, postgres uniquement) :
// SQLite ne le supporte pas et les tests tournent dessus.
type docLocks struct {
	mu sync.Mutex
	m  map[uint]*sync.Mutex
}

func (l *docLocks) lock(docID uint) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[uint]*sync.Mutex)
	}
	dm, ok := l.m[docID]
	if !ok {
		dm = &sync.Mutex{}
		l.m[docID] = dm
	}
	l.mu.Unlock()
	dm.Lock()
	return dm.Unlock
}

// forUpdate ajoute un verrou de ligne quand le dialecte le supporte.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// LigneInput est une ligne telle que reçue de l'API.
type LigneInput struct {
	ArticleID      *uint
	Designation    string
	Quantite       decimal.Decimal
	PrixUnitaireHT decimal.Decimal
	TVATaux        decimal.Decimal
	RemisePourcent decimal.Decimal
}

// CreateDocumentInput regroupe les champs de création d'un document.
type CreateDocumentInput struct {
	EntrepriseID       uint
	ClientID           uint
	Type               string
	Statut             string // vide => brouillon
	DateEmission       time.Time
	DateEcheance       *time.Time
	Lignes             []LigneInput
	Notes              string
	ConditionsPaiement string
}

// buildLignes valide les lignes et calcule leurs montants.
func buildLignes(inputs []LigneInput) ([]models.DocumentLigne, money.LineTotals, error) {
	var totals money.LineTotals
	if len(inputs) == 0 {
		return nil, totals, &ValidationError{Field: "lignes", Reason: "required"}
	}
	lignes := make([]models.DocumentLigne, 0, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in.Designation) == "" {
			return nil, totals, &ValidationError{Field: fmt.Sprintf("lignes[%d].designation", i), Reason: "required"}
		}
		if in.RemisePourcent.IsNegative() || in.RemisePourcent.GreaterThan(decimal.NewFromInt(100)) {
			return nil, totals, &ValidationError{Field: fmt.Sprintf("lignes[%d].remise_pourcent", i), Reason: "out_of_range"}
		}
		if in.TVATaux.IsNegative() {
			return nil, totals, &ValidationError{Field: fmt.Sprintf("lignes[%d].tva_taux", i), Reason: "must_be_positive"}
		}
		ht, tva, ttc := money.LineAmounts(in.Quantite, in.PrixUnitaireHT, in.TVATaux, in.RemisePourcent)
		totals.Add(ht, tva, ttc)
		lignes = append(lignes, models.DocumentLigne{
			Position:       i,
			ArticleID:      in.ArticleID,
			Designation:    in.Designation,
			Quantite:       in.Quantite,
			PrixUnitaireHT: in.PrixUnitaireHT,
			TVATaux:        in.TVATaux,
			RemisePourcent: in.RemisePourcent,
			MontantHT:      ht,
			MontantTVA:     tva,
			MontantTTC:     ttc,
		})
	}
	return lignes, totals, nil
}

// CreateDocument crée un devis, une facture ou un avoir avec ses lignes,
// calcule les totaux et attribue le numéro séquentiel, le tout dans une
// transaction.
func (s *DocumentService) CreateDocument(ctx context.Context, in CreateDocumentInput) (*models.Document, error) {
	switch in.Type {
	case models.DocTypeDevis, models.DocTypeFacture, models.DocTypeAvoir:
	default:
		return nil, &ValidationError{Field: "type", Reason: "unknown"}
	}
	statut := in.Statut
	if statut == "" {
		statut = models.StatutBrouillon
	}
	if statut != models.StatutBrouillon && statut != models.StatutEnvoye {
		return nil, &ValidationError{Field: "statut", Reason: "must_be_brouillon_or_envoye"}
	}
	var client models.Client
	if err := s.DB.WithContext(ctx).
		Where("id = ? AND entreprise_id = ?", in.ClientID, in.EntrepriseID).
		First(&client).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "client", ID: in.ClientID}
		}
		return nil, err
	}
	lignes, totals, err := buildLignes(in.Lignes)
	if err != nil {
		return nil, err
	}
	emission := in.DateEmission
	if emission.IsZero() {
		emission = time.Now()
	}
	doc := models.Document{
		EntrepriseID: in.EntrepriseID,
		ClientID:     in.ClientID,
		Type:         in.Type,
		Statut:       statut,
		DateEmission: emission,
		DateEcheance: in.DateEcheance,
		Lignes:       lignes,
		TotalHT:      totals.HT,
		TotalTVA:     totals.TVA,
		TotalTTC:     totals.TTC,
		// Borné à zéro : un avoir à total négatif n'a rien à encaisser.
		ResteAPayer:        money.ResteAPayer(totals.TTC, decimal.Zero),
		Notes:              in.Notes,
		ConditionsPaiement: in.ConditionsPaiement,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		numero, nerr := nextNumero(tx, in.EntrepriseID, in.Type, emission)
		if nerr != nil {
			return nerr
		}
		doc.Numero = numero
		return tx.Create(&doc).Error
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// getDocument charge un document dans le périmètre du tenant.
func (s *DocumentService) getDocument(tx *gorm.DB, entrepriseID, docID uint) (*models.Document, error) {
	var doc models.Document
	if err := tx.Where("id = ? AND entreprise_id = ?", docID, entrepriseID).First(&doc).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "document", ID: docID}
		}
		return nil, err
	}
	return &doc, nil
}

// GetDocument expose le chargement tenant-scopé avec lignes et paiements.
func (s *DocumentService) GetDocument(ctx context.Context, entrepriseID, docID uint) (*models.Document, error) {
	var doc models.Document
	err := s.DB.WithContext(ctx).
		Preload("Lignes", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Paiements").
		Where("id = ? AND entreprise_id = ?", docID, entrepriseID).
		First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "document", ID: docID}
		}
		return nil, err
	}
	return &doc, nil
}
