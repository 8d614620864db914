package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/services"
)

// Taille maximale acceptée pour un corps de webhook.
const webhookMaxBody = 1 << 16

// StripeWebhook gère POST /webhooks/stripe. La signature est vérifiée avant
// toute lecture du contenu; un événement rejoué ou inconnu répond 200 pour
// arrêter les relances du prestataire, une erreur de traitement répond 500
// pour en obtenir une.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookMaxBody))
	if err != nil {
		httpx.JSON(w, http.StatusBadRequest, map[string]any{"received": false, "error": "body_too_large"})
		return
	}
	// Seule la signature fait foi : un endpoint configuré sur une autre
	// version d'API que celle épinglée par le SDK reste valide.
	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		h.Log.WithError(err).Warn("signature de webhook invalide")
		httpx.JSON(w, http.StatusBadRequest, map[string]any{"received": false, "error": "invalid_signature"})
		return
	}
	if err := h.Reconciler.Process(r.Context(), event); err != nil {
		h.Log.WithError(err).WithField("event_id", event.ID).Error("réconciliation en échec")
		var nf *services.NotFoundError
		if errors.As(err, &nf) {
			httpx.JSON(w, http.StatusNotFound, map[string]any{"received": false, "error": "not_found"})
			return
		}
		httpx.JSON(w, http.StatusInternalServerError, map[string]any{"received": false, "error": "processing_failed"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"received": true})
}
