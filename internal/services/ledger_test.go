package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/artisanat/gestion/internal/models"
)

func seedFacture(t *testing.T, svc *DocumentService, ent models.Entreprise, client models.Client) *models.Document {
	t.Helper()
	in := devisInput(ent, client)
	in.Type = models.DocTypeFacture
	in.Statut = models.StatutEnvoye
	doc, err := svc.CreateDocument(context.Background(), in)
	if err != nil {
		t.Fatalf("create facture: %v", err)
	}
	return doc
}

func TestRecordPaymentValidation(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)
	ctx := context.Background()
	facture := seedFacture(t, svc, ent, client)

	_, _, err := svc.RecordPayment(ctx, RecordPaymentInput{
		EntrepriseID: ent.ID, DocumentID: facture.ID, Montant: d("0"), Moyen: models.MoyenCarte,
	})
	var ve *ValidationError
	if !asErr(err, &ve) {
		t.Fatalf("montant nul: attendu ValidationError, got %v", err)
	}
	_, _, err = svc.RecordPayment(ctx, RecordPaymentInput{
		EntrepriseID: ent.ID, DocumentID: facture.ID, Montant: d("-10"), Moyen: models.MoyenCarte,
	})
	if !asErr(err, &ve) {
		t.Fatalf("montant négatif: attendu ValidationError, got %v", err)
	}
	_, _, err = svc.RecordPayment(ctx, RecordPaymentInput{
		EntrepriseID: ent.ID, DocumentID: facture.ID, Montant: d("10"), Moyen: "bitcoin",
	})
	if !asErr(err, &ve) {
		t.Fatalf("moyen inconnu: attendu ValidationError, got %v", err)
	}
	_, _, err = svc.RecordPayment(ctx, RecordPaymentInput{
		EntrepriseID: ent.ID, DocumentID: 999, Montant: d("10"), Moyen: models.MoyenCarte,
	})
	var nf *NotFoundError
	if !asErr(err, &nf) {
		t.Fatalf("document inconnu: attendu NotFoundError, got %v", err)
	}
}

func TestRecordPaymentRejectedOnDevis(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)
	devis, err := svc.CreateDocument(context.Background(), devisInput(ent, client))
	if err != nil {
		t.Fatalf("create devis: %v", err)
	}
	_, _, err = svc.RecordPayment(context.Background(), RecordPaymentInput{
		EntrepriseID: ent.ID, DocumentID: devis.ID, Montant: d("10"), Moyen: models.MoyenCarte,
	})
	var ise *InvalidStateError
	if !asErr(err, &ise) {
		t.Fatalf("attendu InvalidStateError, got %v", err)
	}
}

func TestRecordPaymentPartialThenPaid(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)
	ctx := context.Background()
	facture := seedFacture(t, svc, ent, client) // TTC 240.00

	_, doc, err := svc.RecordPayment(ctx, RecordPaymentInput{
		EntrepriseID: ent.ID, DocumentID: facture.ID, Montant: d("100.00"), Moyen: models.MoyenVirement,
	})
	if err != nil {
		t.Fatalf("paiement 1: %v", err)
	}
	if !doc.ResteAPayer.Equal(d("140.00")) {
		t.Fatalf("reste = %s", doc.ResteAPayer)
	}
	if doc.Statut != models.StatutEnvoye {
		t.Fatalf("statut = %s avant solde complet", doc.Statut)
	}

	_, doc, err = svc.RecordPayment(ctx, RecordPaymentInput{
		EntrepriseID: ent.ID, DocumentID: facture.ID, Montant: d("140.00"), Moyen: models.MoyenCarte,
	})
	if err != nil {
		t.Fatalf("paiement 2: %v", err)
	}
	if !doc.ResteAPayer.IsZero() {
		t.Fatalf("reste final = %s", doc.ResteAPayer)
	}
	if doc.Statut != models.StatutPaye {
		t.Fatalf("statut final = %s", doc.Statut)
	}

	// L'historique est immuable et complet.
	var n int64
	db.Model(&models.Paiement{}).Where("document_id = ?", facture.ID).Count(&n)
	if n != 2 {
		t.Fatalf("paiements = %d", n)
	}
}

func TestRecordPaymentOverpaymentClampsToZero(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)
	facture := seedFacture(t, svc, ent, client)

	_, doc, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		EntrepriseID: ent.ID, DocumentID: facture.ID, Montant: d("300.00"), Moyen: models.MoyenVirement,
	})
	if err != nil {
		t.Fatalf("paiement: %v", err)
	}
	if !doc.ResteAPayer.IsZero() {
		t.Fatalf("reste = %s, attendu 0 (borné)", doc.ResteAPayer)
	}
	if doc.Statut != models.StatutPaye {
		t.Fatalf("statut = %s", doc.Statut)
	}
}

func TestRecordPaymentDuplicateReference(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)
	ctx := context.Background()
	facture := seedFacture(t, svc, ent, client)

	in := RecordPaymentInput{
		EntrepriseID: ent.ID, DocumentID: facture.ID, Montant: d("240.00"),
		Moyen: models.MoyenCarte, Reference: "pi_3abc",
	}
	if _, _, err := svc.RecordPayment(ctx, in); err != nil {
		t.Fatalf("paiement 1: %v", err)
	}
	_, _, err := svc.RecordPayment(ctx, in)
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("attendu ErrDuplicateReference, got %v", err)
	}
	var n int64
	db.Model(&models.Paiement{}).Where("document_id = ?", facture.ID).Count(&n)
	if n != 1 {
		t.Fatalf("paiements = %d, le rejeu a dupliqué", n)
	}
}

func TestRecordPaymentConcurrentHalves(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)
	facture := seedFacture(t, svc, ent, client) // TTC 240.00

	// Deux moitiés en concurrence : la séquence lecture-agrégat-écriture est
	// sérialisée par document, aucun lost update possible.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.RecordPayment(context.Background(), RecordPaymentInput{
				EntrepriseID: ent.ID, DocumentID: facture.ID, Montant: d("120.00"), Moyen: models.MoyenVirement,
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("paiement concurrent %d: %v", i, err)
		}
	}
	var doc models.Document
	if err := db.First(&doc, facture.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !doc.ResteAPayer.IsZero() {
		t.Fatalf("reste final = %s (lost update)", doc.ResteAPayer)
	}
	if doc.Statut != models.StatutPaye {
		t.Fatalf("statut final = %s", doc.Statut)
	}
}
