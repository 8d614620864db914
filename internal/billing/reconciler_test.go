package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/services"
)

type stubFetcher struct {
	sub *stripe.Subscription
	err error
}

func (s *stubFetcher) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	return s.sub, s.err
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func setupBillingTest(t *testing.T) (*gorm.DB, *Reconciler, *stubFetcher) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Entreprise{}, &models.Client{}, &models.LoyaltyAccount{},
		&models.Document{}, &models.DocumentLigne{}, &models.Paiement{},
		&models.DocumentNumberSeries{}, &models.AuditLog{},
		&models.Abonnement{}, &models.ProcessedEvent{}, &models.Notification{},
	))
	fetcher := &stubFetcher{}
	docs := services.NewDocumentService(db)
	rec := NewReconciler(db, docs, fetcher, &DBNotifier{DB: db}, quietLogger())
	rec.PlanByPrice = map[string]string{"price_pro": models.PlanPro}
	return db, rec, fetcher
}

func seedFacture(t *testing.T, db *gorm.DB, rec *Reconciler) (models.Entreprise, models.Client, *models.Document) {
	t.Helper()
	ent := models.Entreprise{RaisonSociale: "Atelier Durand", StripeCustomerID: "cus_1"}
	require.NoError(t, db.Create(&ent).Error)
	cl := models.Client{EntrepriseID: ent.ID, Nom: "ClientCo"}
	require.NoError(t, db.Create(&cl).Error)
	doc, err := rec.Docs.CreateDocument(context.Background(), services.CreateDocumentInput{
		EntrepriseID: ent.ID,
		ClientID:     cl.ID,
		Type:         models.DocTypeFacture,
		Statut:       models.StatutEnvoye,
		Lignes: []services.LigneInput{{
			Designation:    "Prestation",
			Quantite:       decimal.NewFromInt(2),
			PrixUnitaireHT: decimal.RequireFromString("100.00"),
			TVATaux:        decimal.NewFromInt(20),
		}},
	})
	require.NoError(t, err)
	return ent, cl, doc
}

func checkoutEvent(id string, ent models.Entreprise, doc *models.Document, intent string) stripe.Event {
	raw, _ := json.Marshal(map[string]interface{}{
		"id":             "cs_" + id,
		"mode":           "payment",
		"amount_total":   24000,
		"payment_intent": intent,
		"metadata": map[string]string{
			"document_id":   fmt.Sprint(doc.ID),
			"entreprise_id": fmt.Sprint(ent.ID),
		},
	})
	return stripe.Event{
		ID:      id,
		Type:    "checkout.session.completed",
		Created: time.Now().Unix(),
		Data:    &stripe.EventData{Raw: raw},
	}
}

func TestCheckoutCompletedRecordsPayment(t *testing.T) {
	db, rec, _ := setupBillingTest(t)
	ent, cl, doc := seedFacture(t, db, rec)

	require.NoError(t, rec.Process(context.Background(), checkoutEvent("evt_1", ent, doc, "pi_1")))

	var reloaded models.Document
	require.NoError(t, db.First(&reloaded, doc.ID).Error)
	require.True(t, reloaded.ResteAPayer.IsZero(), "reste = %s", reloaded.ResteAPayer)
	require.Equal(t, models.StatutPaye, reloaded.Statut)

	var p models.Paiement
	require.NoError(t, db.Where("document_id = ?", doc.ID).First(&p).Error)
	require.Equal(t, "pi_1", p.Reference)
	require.Equal(t, models.MoyenCarte, p.Moyen)
	// 240 euros encaissés -> 240 points.
	var compte models.LoyaltyAccount
	require.NoError(t, db.Where("client_id = ?", cl.ID).First(&compte).Error)
	require.EqualValues(t, 240, compte.Points)
}

func TestCheckoutCompletedReplayIsIdempotent(t *testing.T) {
	db, rec, _ := setupBillingTest(t)
	ent, cl, doc := seedFacture(t, db, rec)
	ctx := context.Background()

	evt := checkoutEvent("evt_replay", ent, doc, "pi_1")
	require.NoError(t, rec.Process(ctx, evt))
	// Redelivery du même événement : aucun nouvel état.
	require.NoError(t, rec.Process(ctx, evt))

	var n int64
	db.Model(&models.Paiement{}).Where("document_id = ?", doc.ID).Count(&n)
	require.EqualValues(t, 1, n, "le rejeu a dupliqué le paiement")
	var compte models.LoyaltyAccount
	require.NoError(t, db.Where("client_id = ?", cl.ID).First(&compte).Error)
	require.EqualValues(t, 240, compte.Points, "le rejeu a doublé les points")
}

func TestCheckoutCompletedSameTransactionDifferentEvent(t *testing.T) {
	// Deux événements distincts portant la même transaction : la référence
	// du paiement déduplique, pas de double encaissement ni de double accrual.
	db, rec, _ := setupBillingTest(t)
	ent, cl, doc := seedFacture(t, db, rec)
	ctx := context.Background()

	require.NoError(t, rec.Process(ctx, checkoutEvent("evt_a", ent, doc, "pi_same")))
	require.NoError(t, rec.Process(ctx, checkoutEvent("evt_b", ent, doc, "pi_same")))

	var n int64
	db.Model(&models.Paiement{}).Where("document_id = ?", doc.ID).Count(&n)
	require.EqualValues(t, 1, n)
	var compte models.LoyaltyAccount
	require.NoError(t, db.Where("client_id = ?", cl.ID).First(&compte).Error)
	require.EqualValues(t, 240, compte.Points)
}

func TestCheckoutCompletedMissingMetadataFails(t *testing.T) {
	db, rec, _ := setupBillingTest(t)
	raw, _ := json.Marshal(map[string]interface{}{"id": "cs_x", "mode": "payment", "amount_total": 1000})
	err := rec.Process(context.Background(), stripe.Event{
		ID: "evt_nometa", Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	})
	require.Error(t, err)
	// L'échec est journalisé pour que l'appelant puisse rejouer.
	var pe models.ProcessedEvent
	require.NoError(t, db.Where("event_id = ?", "evt_nometa").First(&pe).Error)
	require.Equal(t, models.EventFailed, pe.Statut)
	var n int64
	db.Model(&models.Paiement{}).Count(&n)
	require.Zero(t, n)
}

func subscriptionRaw(status string, trialEnd int64) json.RawMessage {
	raw, _ := json.Marshal(map[string]interface{}{
		"id":                   "sub_1",
		"status":               status,
		"customer":             "cus_1",
		"cancel_at_period_end": false,
		"trial_end":            trialEnd,
		"current_period_start": time.Now().Add(-time.Hour).Unix(),
		"current_period_end":   time.Now().Add(30 * 24 * time.Hour).Unix(),
		"items": map[string]interface{}{
			"data": []map[string]interface{}{{"price": map[string]interface{}{"id": "price_pro"}}},
		},
	})
	return raw
}

func TestSubscriptionLifecycle(t *testing.T) {
	db, rec, _ := setupBillingTest(t)
	ent := models.Entreprise{RaisonSociale: "Atelier Durand", StripeCustomerID: "cus_1"}
	require.NoError(t, db.Create(&ent).Error)
	ctx := context.Background()

	// created -> upsert avec plan mappé depuis le price id.
	require.NoError(t, rec.Process(ctx, stripe.Event{
		ID: "evt_sc", Type: "customer.subscription.created",
		Data: &stripe.EventData{Raw: subscriptionRaw("trialing", time.Now().Add(14*24*time.Hour).Unix())},
	}))
	var ab models.Abonnement
	require.NoError(t, db.Where("stripe_subscription_id = ?", "sub_1").First(&ab).Error)
	require.Equal(t, ent.ID, ab.EntrepriseID)
	require.Equal(t, models.PlanPro, ab.Plan)
	require.Equal(t, "trialing", ab.Statut)
	require.NotNil(t, ab.TrialEnd)

	// updated -> même ligne, statut rafraîchi.
	require.NoError(t, rec.Process(ctx, stripe.Event{
		ID: "evt_su", Type: "customer.subscription.updated",
		Data: &stripe.EventData{Raw: subscriptionRaw("active", 0)},
	}))
	require.NoError(t, db.Where("stripe_subscription_id = ?", "sub_1").First(&ab).Error)
	require.Equal(t, "active", ab.Statut)
	var count int64
	db.Model(&models.Abonnement{}).Count(&count)
	require.EqualValues(t, 1, count)

	// deleted -> canceled + soft delete.
	require.NoError(t, rec.Process(ctx, stripe.Event{
		ID: "evt_sd", Type: "customer.subscription.deleted",
		Data: &stripe.EventData{Raw: subscriptionRaw("canceled", 0)},
	}))
	require.Error(t, db.Where("stripe_subscription_id = ?", "sub_1").First(&ab).Error)
	require.NoError(t, db.Unscoped().Where("stripe_subscription_id = ?", "sub_1").First(&ab).Error)
	require.Equal(t, models.AbonnementCanceled, ab.Statut)
}

func TestTrialWillEndNotifies(t *testing.T) {
	db, rec, _ := setupBillingTest(t)
	ent := models.Entreprise{RaisonSociale: "Atelier Durand", StripeCustomerID: "cus_1"}
	require.NoError(t, db.Create(&ent).Error)

	require.NoError(t, rec.Process(context.Background(), stripe.Event{
		ID: "evt_trial", Type: "customer.subscription.trial_will_end",
		Data: &stripe.EventData{Raw: subscriptionRaw("trialing", time.Now().Add(3*24*time.Hour).Unix())},
	}))
	var notif models.Notification
	require.NoError(t, db.Where("entreprise_id = ? AND type = ?", ent.ID, "essai").First(&notif).Error)
}

func TestProviderInvoiceFailedResyncsAndNotifies(t *testing.T) {
	db, rec, fetcher := setupBillingTest(t)
	ent := models.Entreprise{RaisonSociale: "Atelier Durand", StripeCustomerID: "cus_1"}
	require.NoError(t, db.Create(&ent).Error)
	var fresh stripe.Subscription
	require.NoError(t, json.Unmarshal(subscriptionRaw("past_due", 0), &fresh))
	fetcher.sub = &fresh

	raw, _ := json.Marshal(map[string]interface{}{"id": "in_1", "subscription": "sub_1"})
	require.NoError(t, rec.Process(context.Background(), stripe.Event{
		ID: "evt_if", Type: "invoice.payment_failed",
		Data: &stripe.EventData{Raw: raw},
	}))

	var ab models.Abonnement
	require.NoError(t, db.Where("stripe_subscription_id = ?", "sub_1").First(&ab).Error)
	require.Equal(t, models.AbonnementPastDue, ab.Statut)
	var notif models.Notification
	require.NoError(t, db.Where("entreprise_id = ? AND type = ?", ent.ID, "paiement").First(&notif).Error)
}

func TestUnhandledEventTypeIgnored(t *testing.T) {
	db, rec, _ := setupBillingTest(t)
	require.NoError(t, rec.Process(context.Background(), stripe.Event{
		ID: "evt_misc", Type: "charge.refunded", Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}))
	var n int64
	db.Model(&models.ProcessedEvent{}).Count(&n)
	require.Zero(t, n)
}

type failingNotifier struct{}

func (failingNotifier) Notify(uint, string, string, string) error {
	return fmt.Errorf("smtp indisponible")
}

func TestNotificationFailureDoesNotFailEvent(t *testing.T) {
	db, rec, _ := setupBillingTest(t)
	rec.Notifier = failingNotifier{}
	ent := models.Entreprise{RaisonSociale: "Atelier Durand", StripeCustomerID: "cus_1"}
	require.NoError(t, db.Create(&ent).Error)

	err := rec.Process(context.Background(), stripe.Event{
		ID: "evt_notif_ko", Type: "customer.subscription.trial_will_end",
		Data: &stripe.EventData{Raw: subscriptionRaw("trialing", time.Now().Add(24*time.Hour).Unix())},
	})
	require.NoError(t, err, "un échec de notification ne doit pas faire échouer l'événement")
	var pe models.ProcessedEvent
	require.NoError(t, db.Where("event_id = ?", "evt_notif_ko").First(&pe).Error)
	require.Equal(t, models.EventSucceeded, pe.Statut)
}
