package handlers

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/artisanat/gestion/gate"
	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/validation"
)

type articleRequest struct {
	Reference      string          `json:"reference"`
	Designation    string          `json:"designation"`
	PrixUnitaireHT decimal.Decimal `json:"prix_unitaire_ht"`
	TVATaux        decimal.Decimal `json:"tva_taux"`
	Unite          string          `json:"unite"`
	Stock          decimal.Decimal `json:"stock"`
	SuiviStock     bool            `json:"suivi_stock"`
}

func (req *articleRequest) validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("reference", req.Reference, v)
	validation.Required("designation", req.Designation, v)
	validation.PositiveAmount("prix_unitaire_ht", req.PrixUnitaireHT, v)
	validation.RangePercent("tva_taux", req.TVATaux, v)
	return v
}

// Articles gère GET /articles (liste) et POST /articles (création).
func (h *Handler) Articles(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !h.authorize(w, user.Role.Name, "article", gate.ActionList) {
			return
		}
		var articles []models.Article
		if err := h.DB.Where("entreprise_id = ?", user.EntrepriseID).
			Order("reference").Find(&articles).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, articles)
	case http.MethodPost:
		if !h.authorize(w, user.Role.Name, "article", gate.ActionCreate) {
			return
		}
		var req articleRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		if v := req.validate(); !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		article := models.Article{
			EntrepriseID:   user.EntrepriseID,
			Reference:      req.Reference,
			Designation:    req.Designation,
			PrixUnitaireHT: req.PrixUnitaireHT,
			TVATaux:        req.TVATaux,
			Stock:          req.Stock,
			SuiviStock:     req.SuiviStock,
		}
		if req.Unite != "" {
			article.Unite = req.Unite
		}
		if err := h.DB.Create(&article).Error; err != nil {
			// Contrainte d'unicité (entreprise, référence).
			httpx.JSONError(w, http.StatusConflict, "reference_already_used", nil)
			return
		}
		httpx.JSON(w, http.StatusCreated, article)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// ArticleUpdate gère POST /articles/update?id=N.
func (h *Handler) ArticleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.authorize(w, user.Role.Name, "article", gate.ActionUpdate) {
		return
	}
	article, ok := h.loadArticle(w, r, user.EntrepriseID)
	if !ok {
		return
	}
	var req articleRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	article.Reference = req.Reference
	article.Designation = req.Designation
	article.PrixUnitaireHT = req.PrixUnitaireHT
	article.TVATaux = req.TVATaux
	article.Stock = req.Stock
	article.SuiviStock = req.SuiviStock
	if req.Unite != "" {
		article.Unite = req.Unite
	}
	if err := h.DB.Save(article).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "reference_already_used", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, article)
}

// ArticleDelete gère POST /articles/delete?id=N (soft delete : les lignes de
// documents existantes gardent leur référence d'article).
func (h *Handler) ArticleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.authorize(w, user.Role.Name, "article", gate.ActionDelete) {
		return
	}
	article, ok := h.loadArticle(w, r, user.EntrepriseID)
	if !ok {
		return
	}
	if err := h.DB.Delete(article).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) loadArticle(w http.ResponseWriter, r *http.Request, entrepriseID uint) (*models.Article, bool) {
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil, false
	}
	var article models.Article
	if err := h.DB.Where("id = ? AND entreprise_id = ?", id, entrepriseID).
		First(&article).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return nil, false
	}
	return &article, true
}
