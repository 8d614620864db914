package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Entreprise{}, &models.Client{}, &models.Document{}, &models.DocumentLigne{},
		&models.Paiement{}, &models.DocumentNumberSeries{}, &models.AuditLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTenant(t *testing.T, db *gorm.DB) (models.Entreprise, models.Client) {
	t.Helper()
	ent := models.Entreprise{RaisonSociale: "Atelier Martin", SIREN: "123456789"}
	if err := db.Create(&ent).Error; err != nil {
		t.Fatalf("entreprise: %v", err)
	}
	client := models.Client{EntrepriseID: ent.ID, Nom: "ClientCo"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("client: %v", err)
	}
	return ent, client
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func devisInput(ent models.Entreprise, client models.Client) CreateDocumentInput {
	// Scénario de référence : 2 x 100.00 HT à 20% sans remise.
	return CreateDocumentInput{
		EntrepriseID: ent.ID,
		ClientID:     client.ID,
		Type:         models.DocTypeDevis,
		Lignes: []LigneInput{
			{Designation: "Prestation", Quantite: d("2"), PrixUnitaireHT: d("100.00"), TVATaux: d("20"), RemisePourcent: d("0")},
		},
	}
}

func TestCreateDocumentComputesTotals(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)

	doc, err := svc.CreateDocument(context.Background(), devisInput(ent, client))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !doc.TotalHT.Equal(d("200.00")) || !doc.TotalTVA.Equal(d("40.00")) || !doc.TotalTTC.Equal(d("240.00")) {
		t.Fatalf("totaux: HT=%s TVA=%s TTC=%s", doc.TotalHT, doc.TotalTVA, doc.TotalTTC)
	}
	if !doc.ResteAPayer.Equal(doc.TotalTTC) {
		t.Fatalf("reste_a_payer initial = %s, attendu %s", doc.ResteAPayer, doc.TotalTTC)
	}
	if doc.Statut != models.StatutBrouillon {
		t.Fatalf("statut initial = %s", doc.Statut)
	}
	if doc.Numero != fmt.Sprintf("DEV-%d-00001", doc.DateEmission.Year()) {
		t.Fatalf("numero = %s", doc.Numero)
	}
}

func TestCreateAvoirNegatifResteAPayerZero(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)

	in := devisInput(ent, client)
	in.Type = models.DocTypeAvoir
	in.Lignes = []LigneInput{
		{Designation: "Retour marchandise", Quantite: d("-2"), PrixUnitaireHT: d("100.00"), TVATaux: d("20"), RemisePourcent: d("0")},
	}
	doc, err := svc.CreateDocument(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !doc.TotalTTC.Equal(d("-240.00")) {
		t.Fatalf("total TTC = %s", doc.TotalTTC)
	}
	// reste_a_payer est borné à zéro, jamais négatif.
	if !doc.ResteAPayer.IsZero() {
		t.Fatalf("reste_a_payer = %s", doc.ResteAPayer)
	}
}

func TestCreateDocumentValidation(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)

	in := devisInput(ent, client)
	in.Lignes = nil
	if _, err := svc.CreateDocument(context.Background(), in); err == nil {
		t.Fatalf("lignes vides acceptées")
	}

	in = devisInput(ent, client)
	in.ClientID = 999
	_, err := svc.CreateDocument(context.Background(), in)
	var nf *NotFoundError
	if !asErr(err, &nf) {
		t.Fatalf("attendu NotFoundError, got %v", err)
	}

	in = devisInput(ent, client)
	in.Type = "bon_de_commande"
	if _, err := svc.CreateDocument(context.Background(), in); err == nil {
		t.Fatalf("type inconnu accepté")
	}
}

func TestNumberingIndependentPerType(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)
	ctx := context.Background()

	d1, err := svc.CreateDocument(ctx, devisInput(ent, client))
	if err != nil {
		t.Fatalf("devis 1: %v", err)
	}
	d2, err := svc.CreateDocument(ctx, devisInput(ent, client))
	if err != nil {
		t.Fatalf("devis 2: %v", err)
	}
	fin := devisInput(ent, client)
	fin.Type = models.DocTypeFacture
	f1, err := svc.CreateDocument(ctx, fin)
	if err != nil {
		t.Fatalf("facture: %v", err)
	}
	annee := d1.DateEmission.Year()
	if d1.Numero != fmt.Sprintf("DEV-%d-00001", annee) || d2.Numero != fmt.Sprintf("DEV-%d-00002", annee) {
		t.Fatalf("séquence devis: %s puis %s", d1.Numero, d2.Numero)
	}
	// La séquence facture repart de 1, indépendante de celle des devis.
	if f1.Numero != fmt.Sprintf("FAC-%d-00001", annee) {
		t.Fatalf("séquence facture: %s", f1.Numero)
	}
}

func TestTransitionMatrix(t *testing.T) {
	cases := []struct {
		docType, from, to string
		ok                bool
	}{
		{models.DocTypeDevis, models.StatutBrouillon, models.StatutEnvoye, true},
		{models.DocTypeDevis, models.StatutEnvoye, models.StatutAccepte, true},
		{models.DocTypeDevis, models.StatutEnvoye, models.StatutRefuse, true},
		{models.DocTypeDevis, models.StatutBrouillon, models.StatutAccepte, false},
		{models.DocTypeDevis, models.StatutAccepte, models.StatutAnnule, true},
		{models.DocTypeDevis, models.StatutRefuse, models.StatutAnnule, false}, // refuse est terminal
		{models.DocTypeDevis, models.StatutAnnule, models.StatutAnnule, false},
		{models.DocTypeFacture, models.StatutBrouillon, models.StatutEnvoye, true},
		{models.DocTypeFacture, models.StatutEnvoye, models.StatutPaye, false}, // paye est dérivé, jamais manuel
		{models.DocTypeFacture, models.StatutEnvoye, models.StatutAnnule, true},
		{models.DocTypeFacture, models.StatutPaye, models.StatutAnnule, false},
		{models.DocTypeAvoir, models.StatutBrouillon, models.StatutEnvoye, true},
	}
	for _, c := range cases {
		if got := CanTransition(c.docType, c.from, c.to); got != c.ok {
			t.Errorf("%s %s->%s: got %v, want %v", c.docType, c.from, c.to, got, c.ok)
		}
	}
}

func TestTransitionPersistsAndAudits(t *testing.T) {
	db := setupServiceTestDB(t)
	ent, client := seedTenant(t, db)
	svc := NewDocumentService(db)
	ctx := context.Background()

	doc, err := svc.CreateDocument(ctx, devisInput(ent, client))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	doc, err = svc.Transition(ctx, ent.ID, doc.ID, models.StatutEnvoye, 1)
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if doc.Statut != models.StatutEnvoye {
		t.Fatalf("statut = %s", doc.Statut)
	}
	var audits int64
	db.Model(&models.AuditLog{}).Where("entity_id = ? AND action = ?", doc.ID, "transition").Count(&audits)
	if audits != 1 {
		t.Fatalf("audit rows = %d", audits)
	}

	// Transition interdite -> InvalidStateError, statut inchangé.
	_, err = svc.Transition(ctx, ent.ID, doc.ID, models.StatutPaye, 1)
	var ise *InvalidStateError
	if !asErr(err, &ise) {
		t.Fatalf("attendu InvalidStateError, got %v", err)
	}
	var reloaded models.Document
	db.First(&reloaded, doc.ID)
	if reloaded.Statut != models.StatutEnvoye {
		t.Fatalf("statut modifié malgré le rejet: %s", reloaded.Statut)
	}
}
