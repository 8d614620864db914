package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/money"
	"github.com/artisanat/gestion/internal/services"
)

// handleCheckoutCompleted route une session de checkout aboutie : encaissement
// d'un document en mode payment, souscription en mode subscription.
func handleCheckoutCompleted(ctx context.Context, r *Reconciler, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("checkout session illisible: %w", err)
	}
	switch sess.Mode {
	case stripe.CheckoutSessionModeSubscription:
		return checkoutSubscription(ctx, r, event, &sess)
	default:
		return checkoutDocumentPayment(ctx, r, event, &sess)
	}
}

// checkoutDocumentPayment encaisse un paiement en ligne contre le document
// désigné par les metadata de la session.
func checkoutDocumentPayment(ctx context.Context, r *Reconciler, event stripe.Event, sess *stripe.CheckoutSession) error {
	docID, err := metadataUint(sess.Metadata, "document_id")
	if err != nil {
		return err
	}
	entID, err := metadataUint(sess.Metadata, "entreprise_id")
	if err != nil {
		return err
	}
	// Conversion unités mineures -> majeures, une seule fois, ici.
	montant := money.FromCents(sess.AmountTotal)
	reference := sess.ID
	if sess.PaymentIntent != nil && sess.PaymentIntent.ID != "" {
		reference = sess.PaymentIntent.ID
	}
	_, doc, err := r.Docs.RecordPayment(ctx, services.RecordPaymentInput{
		EntrepriseID: entID,
		DocumentID:   docID,
		Montant:      montant,
		Moyen:        models.MoyenCarte,
		Date:         time.Unix(event.Created, 0),
		Reference:    reference,
		Notes:        "paiement en ligne",
	})
	if errors.Is(err, services.ErrDuplicateReference) {
		// Événement distinct portant la même transaction : déjà encaissé.
		return nil
	}
	if err != nil {
		return err
	}
	// Fidélité : best-effort, jamais bloquant pour l'encaissement.
	r.sideEffect("fidelite", event.ID, r.accrueLoyalty(doc.ClientID, montant))
	return nil
}

// accrueLoyalty crédite les points de fidélité, même barème que le POS.
func (r *Reconciler) accrueLoyalty(clientID uint, montant decimal.Decimal) error {
	return services.AccrueLoyalty(r.DB, clientID, montant)
}

// checkoutSubscription matérialise une souscription : l'objet complet est
// relu chez le prestataire puis reflété localement.
func checkoutSubscription(ctx context.Context, r *Reconciler, event stripe.Event, sess *stripe.CheckoutSession) error {
	entID, err := metadataUint(sess.Metadata, "entreprise_id")
	if err != nil {
		return err
	}
	if sess.Subscription == nil || sess.Subscription.ID == "" {
		return &services.ValidationError{Field: "subscription", Reason: "required"}
	}
	sub, err := r.Subs.GetSubscription(ctx, sess.Subscription.ID)
	if err != nil {
		return err
	}
	if err := r.upsertSubscription(entID, sub); err != nil {
		return err
	}
	r.notify(event.ID, entID, "abonnement", "Abonnement activé",
		"Votre abonnement est actif. Merci de votre confiance.")
	return nil
}

// handleSubscriptionUpserted reflète created/updated, clé = id prestataire.
func handleSubscriptionUpserted(ctx context.Context, r *Reconciler, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("subscription illisible: %w", err)
	}
	entID, err := r.resolveEntreprise(&sub)
	if err != nil {
		return err
	}
	return r.upsertSubscription(entID, &sub)
}

// handleSubscriptionDeleted passe l'abonnement local en canceled puis le
// soft-delete. L'historique reste consultable.
func handleSubscriptionDeleted(ctx context.Context, r *Reconciler, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("subscription illisible: %w", err)
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var local models.Abonnement
		err := tx.Where("stripe_subscription_id = ?", sub.ID).First(&local).Error
		if err == gorm.ErrRecordNotFound {
			// Jamais vu localement : rien à annuler.
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&local).Update("statut", models.AbonnementCanceled).Error; err != nil {
			return err
		}
		return tx.Delete(&local).Error
	})
}

// handleTrialWillEnd prévient l'entreprise de la fin imminente de l'essai.
// Le seul état principal touché est la resynchronisation de l'abonnement.
func handleTrialWillEnd(ctx context.Context, r *Reconciler, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("subscription illisible: %w", err)
	}
	entID, err := r.resolveEntreprise(&sub)
	if err != nil {
		return err
	}
	if err := r.upsertSubscription(entID, &sub); err != nil {
		return err
	}
	jours := 0
	if sub.TrialEnd > 0 {
		jours = int(time.Until(time.Unix(sub.TrialEnd, 0)).Hours() / 24)
		if jours < 0 {
			jours = 0
		}
	}
	r.notify(event.ID, entID, "essai", "Fin de période d'essai",
		fmt.Sprintf("Votre période d'essai se termine dans %d jour(s).", jours))
	return nil
}

// handleProviderInvoice resynchronise l'abonnement après une facturation
// récurrente côté prestataire (réussie ou non).
func handleProviderInvoice(ctx context.Context, r *Reconciler, event stripe.Event) error {
	var inv stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return fmt.Errorf("invoice illisible: %w", err)
	}
	if inv.Subscription == nil || inv.Subscription.ID == "" {
		// Facture ponctuelle sans abonnement : rien à resynchroniser.
		return nil
	}
	sub, err := r.Subs.GetSubscription(ctx, inv.Subscription.ID)
	if err != nil {
		return err
	}
	entID, err := r.resolveEntreprise(sub)
	if err != nil {
		return err
	}
	if err := r.upsertSubscription(entID, sub); err != nil {
		return err
	}
	if string(event.Type) == "invoice.payment_failed" {
		r.notify(event.ID, entID, "paiement", "Échec de prélèvement",
			"Le prélèvement de votre abonnement a échoué. Merci de vérifier votre moyen de paiement.")
	}
	return nil
}

// resolveEntreprise retrouve le tenant d'un abonnement : d'abord la ligne
// locale (id prestataire), sinon le customer id, sinon les metadata.
func (r *Reconciler) resolveEntreprise(sub *stripe.Subscription) (uint, error) {
	var local models.Abonnement
	err := r.DB.Unscoped().Where("stripe_subscription_id = ?", sub.ID).First(&local).Error
	if err == nil {
		return local.EntrepriseID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		var ent models.Entreprise
		err := r.DB.Where("stripe_customer_id = ?", sub.Customer.ID).First(&ent).Error
		if err == nil {
			return ent.ID, nil
		}
		if err != gorm.ErrRecordNotFound {
			return 0, err
		}
	}
	if id, err := metadataUint(sub.Metadata, "entreprise_id"); err == nil {
		return id, nil
	}
	return 0, &services.NotFoundError{Entity: "entreprise pour l'abonnement", ID: 0}
}

// upsertSubscription reflète l'objet prestataire dans la ligne locale,
// en ressuscitant une ligne soft-deleted si l'abonnement réapparaît.
func (r *Reconciler) upsertSubscription(entrepriseID uint, sub *stripe.Subscription) error {
	plan := r.planFor(sub)
	fields := map[string]interface{}{
		"entreprise_id":        entrepriseID,
		"plan":                 plan,
		"statut":               string(sub.Status),
		"cancel_at_period_end": sub.CancelAtPeriodEnd,
		"trial_end":            unixPtr(sub.TrialEnd),
		"periode_debut":        unixPtr(sub.CurrentPeriodStart),
		"periode_fin":          unixPtr(sub.CurrentPeriodEnd),
		"deleted_at":           nil,
	}
	if sub.Customer != nil {
		fields["stripe_customer_id"] = sub.Customer.ID
	}
	if priceID := firstPriceID(sub); priceID != "" {
		fields["stripe_price_id"] = priceID
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var local models.Abonnement
		err := tx.Unscoped().Where("stripe_subscription_id = ?", sub.ID).First(&local).Error
		if err == gorm.ErrRecordNotFound {
			local = models.Abonnement{StripeSubscriptionID: sub.ID, EntrepriseID: entrepriseID}
			if err := tx.Create(&local).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return tx.Unscoped().Model(&models.Abonnement{}).Where("id = ?", local.ID).
			Updates(fields).Error
	})
}

// planFor détermine le palier local depuis le price id, avec repli sur les
// metadata de l'abonnement puis sur le palier solo.
func (r *Reconciler) planFor(sub *stripe.Subscription) string {
	if priceID := firstPriceID(sub); priceID != "" {
		if plan, ok := r.PlanByPrice[priceID]; ok {
			return plan
		}
	}
	if plan, ok := sub.Metadata["plan"]; ok && plan != "" {
		return plan
	}
	return models.PlanSolo
}

func firstPriceID(sub *stripe.Subscription) string {
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		return sub.Items.Data[0].Price.ID
	}
	return ""
}

func unixPtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0)
	return &t
}
