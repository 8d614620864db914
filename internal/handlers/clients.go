package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/artisanat/gestion/gate"
	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/validation"
)

type clientRequest struct {
	Nom           string `json:"nom"`
	NomCommercial string `json:"nom_commercial"`
	Contact       string `json:"contact"`
	AdresseLigne1 string `json:"adresse_ligne1"`
	AdresseLigne2 string `json:"adresse_ligne2"`
	CodePostal    string `json:"code_postal"`
	Ville         string `json:"ville"`
	Pays          string `json:"pays"`
	Telephone     string `json:"telephone"`
	Email         string `json:"email"`
	SIREN         string `json:"siren"`
	SIRET         string `json:"siret"`
	TVAIntra      string `json:"tva_intra"`
}

// Clients gère GET /clients (liste) et POST /clients (création).
func (h *Handler) Clients(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if !h.authorize(w, user.Role.Name, "client", gate.ActionList) {
			return
		}
		var clients []models.Client
		if err := h.DB.Where("entreprise_id = ?", user.EntrepriseID).
			Order("nom").Find(&clients).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, clients)
	case http.MethodPost:
		if !h.authorize(w, user.Role.Name, "client", gate.ActionCreate) {
			return
		}
		var req clientRequest
		if err := httpx.Decode(r, &req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
		v := validation.Violations{}
		validation.Required("nom", req.Nom, v)
		if !v.Empty() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
			return
		}
		client := models.Client{
			EntrepriseID:  user.EntrepriseID,
			Nom:           req.Nom,
			NomCommercial: req.NomCommercial,
			Contact:       req.Contact,
			AdresseLigne1: req.AdresseLigne1,
			AdresseLigne2: req.AdresseLigne2,
			CodePostal:    req.CodePostal,
			Ville:         req.Ville,
			Telephone:     req.Telephone,
			Email:         req.Email,
			SIREN:         req.SIREN,
			SIRET:         req.SIRET,
			TVAIntra:      req.TVAIntra,
			// Jeton opaque du portail, généré une fois à la création.
			PortalToken: uuid.NewString(),
		}
		if req.Pays != "" {
			client.Pays = req.Pays
		}
		if err := h.DB.Create(&client).Error; err != nil {
			httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		httpx.JSON(w, http.StatusCreated, client)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

// ClientUpdate gère POST /clients/update?id=N.
func (h *Handler) ClientUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.authorize(w, user.Role.Name, "client", gate.ActionUpdate) {
		return
	}
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var client models.Client
	if err := h.DB.Where("id = ? AND entreprise_id = ?", id, user.EntrepriseID).
		First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	var req clientRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("nom", req.Nom, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	client.Nom = req.Nom
	client.NomCommercial = req.NomCommercial
	client.Contact = req.Contact
	client.AdresseLigne1 = req.AdresseLigne1
	client.AdresseLigne2 = req.AdresseLigne2
	client.CodePostal = req.CodePostal
	client.Ville = req.Ville
	client.Telephone = req.Telephone
	client.Email = req.Email
	client.SIREN = req.SIREN
	client.SIRET = req.SIRET
	client.TVAIntra = req.TVAIntra
	if req.Pays != "" {
		client.Pays = req.Pays
	}
	if err := h.DB.Save(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, client)
}
