package handlers

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/auth"
	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/validation"
)

type registerRequest struct {
	RaisonSociale string `json:"raison_sociale"`
	SIREN         string `json:"siren"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Nom           string `json:"nom"`
	Prenom        string `json:"prenom"`
}

// Register crée l'entreprise (tenant) et son premier utilisateur admin,
// puis ouvre la session.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req registerRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	v := validation.Violations{}
	validation.Required("raison_sociale", req.RaisonSociale, v)
	validation.Required("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if req.Password != "" && len(req.Password) < 8 {
		v["password"] = "too_short"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var existing models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		httpx.JSONError(w, http.StatusConflict, "email_already_used", nil)
		return
	} else if err != gorm.ErrRecordNotFound {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	var user models.User
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		ent := models.Entreprise{RaisonSociale: req.RaisonSociale, SIREN: req.SIREN, Email: req.Email}
		if err := tx.Create(&ent).Error; err != nil {
			return err
		}
		var role models.Role
		if err := tx.Where("name = ?", models.RoleAdmin).First(&role).Error; err != nil {
			return err
		}
		user = models.User{
			EntrepriseID: ent.ID,
			Email:        req.Email,
			Password:     string(hash),
			Nom:          req.Nom,
			Prenom:       req.Prenom,
			RoleID:       role.ID,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		h.Log.WithError(err).Error("inscription impossible")
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"user_id":       user.ID,
		"entreprise_id": user.EntrepriseID,
		"role":          models.RoleAdmin,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login vérifie les identifiants et pose le cookie de session signé.
// Même réponse pour email inconnu et mot de passe faux.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	var user models.User
	err := h.DB.Preload("Role").
		Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).
		First(&user).Error
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)) != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "invalid_credentials", nil)
		return
	}
	auth.CreateSession(w, user.ID)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user_id":       user.ID,
		"entreprise_id": user.EntrepriseID,
		"role":          user.Role.Name,
	})
}

// Logout efface le cookie de session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	auth.ClearSession(w)
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}
