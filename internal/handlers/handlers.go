// Package handlers expose l'API JSON. Chaque handler résout l'utilisateur de
// session, vérifie la permission via le gate puis délègue aux services.
package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/gate"
	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/billing"
	"github.com/artisanat/gestion/internal/services"
)

type Handler struct {
	DB         *gorm.DB
	Docs       *services.DocumentService
	Gate       *gate.Gate
	Reconciler *billing.Reconciler
	Log        *logrus.Logger
	// Secret de signature des webhooks du prestataire de paiement.
	WebhookSecret string

	validate *validator.Validate
}

func New(db *gorm.DB, docs *services.DocumentService, g *gate.Gate, rec *billing.Reconciler, log *logrus.Logger, webhookSecret string) *Handler {
	return &Handler{
		DB:            db,
		Docs:          docs,
		Gate:          g,
		Reconciler:    rec,
		Log:           log,
		WebhookSecret: webhookSecret,
		validate:      validator.New(),
	}
}

// authorize répond 403 et retourne false si le rôle n'a pas la permission.
func (h *Handler) authorize(w http.ResponseWriter, role, resource string, action gate.Action) bool {
	if err := h.Gate.Authorize(role, resource, action); err != nil {
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return false
	}
	return true
}
