package handlers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisanat/gestion/gate"
	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/services"
)

type paymentRequest struct {
	DocumentID uint            `json:"document_id"`
	Montant    decimal.Decimal `json:"montant"`
	Moyen      string          `json:"moyen"`
	Date       *time.Time      `json:"date"`
	Reference  string          `json:"reference"`
	Notes      string          `json:"notes"`
}

// DocumentPayments gère POST /documents/payments : enregistre un encaissement
// manuel et retourne le solde et le statut recalculés.
func (h *Handler) DocumentPayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.authorize(w, user.Role.Name, "document", gate.ActionEncaisser) {
		return
	}
	var req paymentRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	in := services.RecordPaymentInput{
		EntrepriseID: user.EntrepriseID,
		DocumentID:   req.DocumentID,
		Montant:      req.Montant,
		Moyen:        req.Moyen,
		Reference:    req.Reference,
		Notes:        req.Notes,
		UserID:       user.ID,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	paiement, doc, err := h.Docs.RecordPayment(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"paiement_id":   paiement.ID,
		"reste_a_payer": doc.ResteAPayer,
		"statut":        doc.Statut,
	})
}
