package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/artisanat/gestion/gate"
	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/models"
)

// Subscription gère GET /subscription : état de l'abonnement du tenant,
// tel que reflété par la réconciliation webhook, avec le palier associé.
func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.authorize(w, user.Role.Name, "abonnement", gate.ActionView) {
		return
	}
	var abo models.Abonnement
	err := h.DB.Where("entreprise_id = ?", user.EntrepriseID).
		Order("created_at DESC").First(&abo).Error
	if err == gorm.ErrRecordNotFound {
		// Pas d'abonnement souscrit : palier solo par défaut.
		httpx.JSON(w, http.StatusOK, map[string]any{
			"abonnement": nil,
			"plan":       models.TierFor(models.PlanSolo),
		})
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"abonnement": abo,
		"plan":       models.TierFor(abo.Plan),
	})
}
