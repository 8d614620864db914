package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/i18n"
	"github.com/artisanat/gestion/internal/models"
)

// portalDocument est la vue réduite exposée au client final : pas de notes
// internes ni d'identifiants techniques au-delà du numéro.
type portalDocument struct {
	Numero       string          `json:"numero"`
	Type         string          `json:"type"`
	TypeLabel    string          `json:"type_label"`
	Statut       string          `json:"statut"`
	StatutLabel  string          `json:"statut_label"`
	DateEmission string          `json:"date_emission"`
	TotalTTC     decimal.Decimal `json:"total_ttc"`
	ResteAPayer  decimal.Decimal `json:"reste_a_payer"`
}

// PortalDocuments gère GET /portal/documents?token=... : accès self-service
// sans session, authentifié par le jeton opaque du client. Les brouillons
// restent invisibles.
func (h *Handler) PortalDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		httpx.JSONError(w, http.StatusUnauthorized, "token_required", nil)
		return
	}
	var client models.Client
	err := h.DB.Where("portal_token = ?", token).First(&client).Error
	if err == gorm.ErrRecordNotFound {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_token", nil)
		return
	}
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	var docs []models.Document
	err = h.DB.Where("client_id = ? AND entreprise_id = ? AND statut <> ?",
		client.ID, client.EntrepriseID, models.StatutBrouillon).
		Order("date_emission DESC, id DESC").Find(&docs).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
	out := make([]portalDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, portalDocument{
			Numero:       d.Numero,
			Type:         d.Type,
			TypeLabel:    i18n.T(lang, "type_"+d.Type),
			Statut:       d.Statut,
			StatutLabel:  i18n.StatusLabel(lang, d.Statut),
			DateEmission: d.DateEmission.Format("2006-01-02"),
			TotalTTC:     d.TotalTTC,
			ResteAPayer:  d.ResteAPayer,
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"client":    client.Nom,
		"documents": out,
	})
}
