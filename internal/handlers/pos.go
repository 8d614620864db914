package handlers

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/gate"
	"github.com/artisanat/gestion/httpx"
	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/services"
)

type posItem struct {
	ArticleID uint            `json:"article_id" validate:"required"`
	Quantite  decimal.Decimal `json:"quantite"`
}

type posCheckoutRequest struct {
	ClientID uint      `json:"client_id" validate:"required"`
	Moyen    string    `json:"moyen" validate:"required,oneof=especes cheque virement carte prelevement"`
	Items    []posItem `json:"items" validate:"required,min=1,dive"`
}

// POSCheckout gère POST /pos/checkout : vente comptoir en une opération.
// Crée la facture depuis le catalogue, l'encaisse immédiatement en totalité
// et décrémente le stock des articles suivis. Le passage à paye est dérivé
// par le ledger, jamais posé directement ici.
func (h *Handler) POSCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	user, ok := currentUser(h.DB, r)
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	if !h.authorize(w, user.Role.Name, "pos", gate.ActionCreate) {
		return
	}
	var req posCheckoutRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	// Les lignes viennent du catalogue : prix et taux de TVA de l'article,
	// jamais du client POS.
	lignes := make([]services.LigneInput, 0, len(req.Items))
	type stockDecrement struct {
		articleID uint
		quantite  decimal.Decimal
	}
	var decrements []stockDecrement
	for i, item := range req.Items {
		if !item.Quantite.IsPositive() {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed",
				map[string]string{posItemField(i): "must_be_positive"})
			return
		}
		var article models.Article
		if err := h.DB.Where("id = ? AND entreprise_id = ?", item.ArticleID, user.EntrepriseID).
			First(&article).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "article_not_found", map[string]any{"article_id": item.ArticleID})
			return
		}
		articleID := article.ID
		lignes = append(lignes, services.LigneInput{
			ArticleID:      &articleID,
			Designation:    article.Designation,
			Quantite:       item.Quantite,
			PrixUnitaireHT: article.PrixUnitaireHT,
			TVATaux:        article.TVATaux,
		})
		if article.SuiviStock {
			decrements = append(decrements, stockDecrement{articleID: article.ID, quantite: item.Quantite})
		}
	}

	doc, err := h.Docs.CreateDocument(r.Context(), services.CreateDocumentInput{
		EntrepriseID: user.EntrepriseID,
		ClientID:     req.ClientID,
		Type:         models.DocTypeFacture,
		Statut:       models.StatutEnvoye,
		Lignes:       lignes,
		Notes:        "vente comptoir",
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	paiement, doc, err := h.Docs.RecordPayment(r.Context(), services.RecordPaymentInput{
		EntrepriseID: user.EntrepriseID,
		DocumentID:   doc.ID,
		Montant:      doc.TotalTTC,
		Moyen:        req.Moyen,
		Reference:    "POS-" + uuid.NewString(),
		Notes:        "encaissement comptoir",
		UserID:       user.ID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Stock et fidélité : best-effort, la vente encaissée prime.
	for _, d := range decrements {
		err := h.DB.Model(&models.Article{}).Where("id = ?", d.articleID).
			Update("stock", gorm.Expr("stock - ?", d.quantite)).Error
		if err != nil {
			h.Log.WithError(err).WithField("article_id", d.articleID).Warn("décrément de stock impossible")
		}
	}
	if err := services.AccrueLoyalty(h.DB, doc.ClientID, doc.TotalTTC); err != nil {
		h.Log.WithError(err).WithField("client_id", doc.ClientID).Warn("crédit fidélité impossible")
	}

	httpx.JSON(w, http.StatusCreated, map[string]any{
		"document_id": doc.ID,
		"numero":      doc.Numero,
		"statut":      doc.Statut,
		"total_ttc":   doc.TotalTTC,
		"paiement_id": paiement.ID,
	})
}

func posItemField(i int) string {
	return fmt.Sprintf("items[%d].quantite", i)
}
