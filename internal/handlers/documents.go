package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artisanat/gestion/gate"
	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/services"
)

type ligneRequest struct {
	ArticleID      *uint           `json:"article_id"`
	Designation    string          `json:"designation"`
	Quantite       decimal.Decimal `json:"quantite"`
	PrixUnitaireHT decimal.Decimal `json:"prix_unitaire_ht"`
	TVATaux        decimal.Decimal `json:"tva_taux"`
	RemisePourcent decimal.Decimal `json:"remise_pourcent"`
}

type documentCreateRequest struct {
	ClientID           uint           `json:"client_id"`
	Type               string         `json:"type"`
	Statut             string         `json:"statut"`
	DateEmission       *time.Time     `json:"date_emission"`
	DateEcheance       *time.Time     `json:"date_echeance"`
	Lignes             []ligneRequest `json:"lignes"`
	Notes              string         `json:"notes"`
	ConditionsPaiement string         `json:"conditions_paiement"`
}

// Documents gère GET /documents (liste filtrable) et POST /documents.
func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !h.authorize(w, user.Role.Name, "document", gate.ActionList) {
			return
		}
		q := h.DB.Where("entreprise_id = ?", user.EntrepriseID)
		if t := r.URL.Query().Get("type"); t != "" {
			q = q.Where("type = ?", t)
		}
		if s := r.URL.Query().Get("statut"); s != "" {
			q = q.Where("statut = ?", s)
		}
		if c := r.URL.Query().Get("client_id"); c != "" {
			q = q.Where("client_id = ?", c)
		}
		var docs []models.Document
		if err := q.Order("date_emission DESC, id DESC").Limit(200).Find(&docs).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, docs)
	case http.MethodPost:
		if !h.authorize(w, user.Role.Name, "document", gate.ActionCreate) {
			return
		}
		var req documentCreateRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		in := services.CreateDocumentInput{
			EntrepriseID:       user.EntrepriseID,
			ClientID:           req.ClientID,
			Type:               req.Type,
			Statut:             req.Statut,
			DateEcheance:       req.DateEcheance,
			Notes:              req.Notes,
			ConditionsPaiement: req.ConditionsPaiement,
		}
		if req.DateEmission != nil {
			in.DateEmission = *req.DateEmission
		}
		for _, l := range req.Lignes {
			in.Lignes = append(in.Lignes, services.LigneInput{
				ArticleID:      l.ArticleID,
				Designation:    l.Designation,
				Quantite:       l.Quantite,
				PrixUnitaireHT: l.PrixUnitaireHT,
				TVATaux:        l.TVATaux,
				RemisePourcent: l.RemisePourcent,
			})
		}
		doc, err := h.Docs.CreateDocument(r.Context(), in)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		httpx.JSON(w, http.StatusCreated, doc)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// DocumentGet gère GET /documents/get?id=N, avec lignes et paiements.
func (h *Handler) DocumentGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.authorize(w, user.Role.Name, "document", gate.ActionView) {
		return
	}
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	doc, err := h.Docs.GetDocument(r.Context(), user.EntrepriseID, uint(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type transitionRequest struct {
	DocumentID uint   `json:"document_id"`
	Statut     string `json:"statut"`
}

// DocumentTransition gère POST /documents/transition.
func (h *Handler) DocumentTransition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.authorize(w, user.Role.Name, "document", gate.ActionTransition) {
		return
	}
	var req transitionRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	doc, err := h.Docs.Transition(r.Context(), user.EntrepriseID, req.DocumentID, req.Statut, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type convertRequest struct {
	DevisID uint `json:"devis_id"`
}

// DocumentConvert gère POST /documents/convert : devis accepté -> facture.
func (h *Handler) DocumentConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.authorize(w, user.Role.Name, "document", gate.ActionConvert) {
		return
	}
	var req convertRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	facture, err := h.Docs.ConvertQuote(r.Context(), user.EntrepriseID, req.DevisID, user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, facture)
}
