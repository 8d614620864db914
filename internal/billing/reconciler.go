// Package billing réconcilie les événements asynchrones du prestataire de
// paiement (Stripe) avec l'état local : paiements de documents, abonnements.
//
// Deux familles d'effets cohabitent et ne se mélangent jamais :
//   - l'état principal (paiement, abonnement) : tout échec remonte à
//     l'appelant pour que le prestataire rejoue l'événement;
//   - les effets de bord (points de fidélité, notifications) : toujours
//     best-effort, loggés puis avalés, jamais propagés.
package billing

import (
	"context"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/services"
)

// SubscriptionFetcher récupère l'objet subscription complet chez le
// prestataire. Implémenté par StripeGateway; remplacé par un stub en test.
type SubscriptionFetcher interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error)
}

// Notifier envoie une notification (tableau de bord, email...).
// Toujours appelé en best-effort.
type Notifier interface {
	Notify(entrepriseID uint, typ, titre, message string) error
}

type eventHandler func(ctx context.Context, r *Reconciler, event stripe.Event) error

// dispatch : table typée événement -> handler. Un type absent de la table est
// ignoré (loggé, 200 côté HTTP), jamais une erreur.
var dispatch = map[string]eventHandler{
	"checkout.session.completed":           handleCheckoutCompleted,
	"customer.subscription.created":        handleSubscriptionUpserted,
	"customer.subscription.updated":        handleSubscriptionUpserted,
	"customer.subscription.deleted":        handleSubscriptionDeleted,
	"customer.subscription.trial_will_end": handleTrialWillEnd,
	"invoice.paid":                         handleProviderInvoice,
	"invoice.payment_failed":               handleProviderInvoice,
}

// Reconciler applique les événements vérifiés à l'état local.
type Reconciler struct {
	DB       *gorm.DB
	Docs     *services.DocumentService
	Subs     SubscriptionFetcher
	Notifier Notifier
	Log      *logrus.Logger
	// PlanByPrice mappe un price id du prestataire vers un palier local.
	// Figé au démarrage.
	PlanByPrice map[string]string
}

func NewReconciler(db *gorm.DB, docs *services.DocumentService, subs SubscriptionFetcher, notifier Notifier, log *logrus.Logger) *Reconciler {
	return &Reconciler{DB: db, Docs: docs, Subs: subs, Notifier: notifier, Log: log}
}

// Process traite un événement déjà authentifié (signature vérifiée en amont).
// Idempotent : un id d'événement déjà traité avec succès est ignoré sans
// toucher l'état, rejouer le même événement ne double ni paiement ni points.
func (r *Reconciler) Process(ctx context.Context, event stripe.Event) error {
	h, ok := dispatch[string(event.Type)]
	if !ok {
		r.Log.WithFields(logrus.Fields{"module": "billing", "event": event.ID, "type": event.Type}).
			Info("type d'événement non géré, ignoré")
		return nil
	}
	skip, err := r.beginEvent(event)
	if err != nil {
		return err
	}
	if skip {
		r.Log.WithFields(logrus.Fields{"module": "billing", "event": event.ID}).
			Info("événement déjà traité, rejeu ignoré")
		return nil
	}
	if err := h(ctx, r, event); err != nil {
		r.markEvent(event.ID, models.EventFailed, err)
		return err
	}
	r.markEvent(event.ID, models.EventSucceeded, nil)
	return nil
}

// beginEvent enregistre l'événement dans le journal d'idempotence.
// skip=true si un traitement antérieur a déjà abouti.
func (r *Reconciler) beginEvent(event stripe.Event) (skip bool, err error) {
	rec := models.ProcessedEvent{EventID: event.ID, EventType: string(event.Type), Statut: models.EventStarted}
	if err := r.DB.Create(&rec).Error; err == nil {
		return false, nil
	}
	// Insertion refusée : l'id existe déjà (contrainte unique) ou la base est
	// indisponible. On relit pour trancher.
	var existing models.ProcessedEvent
	if ferr := r.DB.Where("event_id = ?", event.ID).First(&existing).Error; ferr != nil {
		return false, ferr
	}
	if existing.Statut == models.EventSucceeded {
		return true, nil
	}
	// Échec ou traitement interrompu : on retente.
	return false, r.DB.Model(&models.ProcessedEvent{}).Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"statut": models.EventStarted, "last_error": ""}).Error
}

func (r *Reconciler) markEvent(eventID, statut string, cause error) {
	updates := map[string]interface{}{"statut": statut}
	if cause != nil {
		updates["last_error"] = cause.Error()
	}
	if err := r.DB.Model(&models.ProcessedEvent{}).Where("event_id = ?", eventID).
		Updates(updates).Error; err != nil {
		r.Log.WithFields(logrus.Fields{"module": "billing", "event": eventID}).
			WithError(err).Error("échec de marquage du journal d'idempotence")
	}
}

// sideEffect logge et avale l'échec d'un effet de bord.
func (r *Reconciler) sideEffect(name, eventID string, err error) {
	if err == nil {
		return
	}
	r.Log.WithFields(logrus.Fields{"module": "billing", "event": eventID, "effet": name}).
		WithError(err).Warn("effet de bord en échec, ignoré")
}

// notify envoie une notification best-effort.
func (r *Reconciler) notify(eventID string, entrepriseID uint, typ, titre, message string) {
	if r.Notifier == nil {
		return
	}
	r.sideEffect("notification", eventID, r.Notifier.Notify(entrepriseID, typ, titre, message))
}

// metadataUint extrait un id numérique des metadata d'un objet prestataire.
func metadataUint(meta map[string]string, key string) (uint, error) {
	raw, ok := meta[key]
	if !ok || raw == "" {
		return 0, &services.ValidationError{Field: "metadata." + key, Reason: "required"}
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, &services.ValidationError{Field: "metadata." + key, Reason: "invalid"}
	}
	return uint(id), nil
}
