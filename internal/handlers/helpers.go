package handlers

import (
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/artisanat/gestion/auth"
	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/services"
)

// currentUser charge l'utilisateur de session avec son rôle.
// Les handlers s'en servent pour le périmètre tenant et les permissions.
func currentUser(db *gorm.DB, r *http.Request) (*models.User, bool) {
	uid, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	var user models.User
	if err := db.Preload("Role").First(&user, uid).Error; err != nil {
		return nil, false
	}
	return &user, true
}

// writeDomainError mappe la taxonomie d'erreurs du domaine sur les statuts
// HTTP. Aucun texte d'erreur interne brut n'atteint le client : seuls les
// codes stables et les détails de validation passent.
func writeDomainError(w http.ResponseWriter, err error) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{ve.Field: ve.Reason})
		return
	}
	var nf *services.NotFoundError
	if errors.As(err, &nf) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var ise *services.InvalidStateError
	if errors.As(err, &ise) {
		httpx.JSONError(w, http.StatusConflict, "invalid_state", map[string]string{"statut": ise.Statut})
		return
	}
	if errors.Is(err, services.ErrDuplicateReference) {
		httpx.JSONError(w, http.StatusConflict, "duplicate_reference", nil)
		return
	}
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}

// Health répond ok si le process tourne et que la base répond au ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "db_unavailable", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// methodNotAllowed répond 405 avec l'entête Allow.
func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
