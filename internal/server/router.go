package server

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/artisanat/gestion/auth"
	"github.com/artisanat/gestion/gate"
	"github.com/artisanat/gestion/internal/handlers"
	"github.com/artisanat/gestion/internal/models"
)

// Permissions est la table rôle -> permissions, figée au démarrage.
// admin fait tout; gestionnaire tout le métier sauf la gestion de compte;
// vendeur est limité au comptoir et à la consultation.
func Permissions() map[string][]gate.Permission {
	return map[string][]gate.Permission{
		models.RoleAdmin: {gate.PermissionSuperAdmin},
		models.RoleGestionnaire: {
			"client:*",
			"article:*",
			"document:*",
			"pos:*",
			gate.NewPermission("abonnement", gate.ActionView),
		},
		models.RoleVendeur: {
			gate.NewPermission("client", gate.ActionList),
			gate.NewPermission("client", gate.ActionView),
			gate.NewPermission("article", gate.ActionList),
			gate.NewPermission("document", gate.ActionList),
			gate.NewPermission("document", gate.ActionView),
			gate.NewPermission("document", gate.ActionCreate),
			gate.NewPermission("document", gate.ActionEncaisser),
			gate.NewPermission("pos", gate.ActionCreate),
		},
	}
}

// NewGate construit le gate avec la table de permissions standard.
func NewGate() *gate.Gate {
	return gate.New(Permissions())
}

// NewRouter assemble toutes les routes de l'API.
// /portal et /webhooks sont volontairement hors session : le portail est
// authentifié par jeton, le webhook par signature.
func NewRouter(h *handlers.Handler, log *logrus.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/healthz", h.Health)

	mux.HandleFunc("/register", h.Register)
	mux.HandleFunc("/login", h.Login)
	mux.HandleFunc("/logout", h.Logout)

	protected := func(fn http.HandlerFunc) http.Handler { return auth.RequireAuth(fn) }
	mux.Handle("/clients", protected(h.Clients))
	mux.Handle("/clients/update", protected(h.ClientUpdate))
	mux.Handle("/articles", protected(h.Articles))
	mux.Handle("/articles/update", protected(h.ArticleUpdate))
	mux.Handle("/articles/delete", protected(h.ArticleDelete))
	mux.Handle("/documents", protected(h.Documents))
	mux.Handle("/documents/get", protected(h.DocumentGet))
	mux.Handle("/documents/transition", protected(h.DocumentTransition))
	mux.Handle("/documents/convert", protected(h.DocumentConvert))
	mux.Handle("/documents/payments", protected(h.DocumentPayments))
	mux.Handle("/pos/checkout", protected(h.POSCheckout))
	mux.Handle("/subscription", protected(h.Subscription))

	mux.HandleFunc("/portal/documents", h.PortalDocuments)
	mux.HandleFunc("/webhooks/stripe", h.StripeWebhook)

	return withRecovery(log, withLogging(log, auth.Middleware(mux)))
}
