package billing

import (
	"context"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
)

// StripeGateway est l'implémentation réelle de SubscriptionFetcher.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	return g.api.Subscriptions.Get(subscriptionID, params)
}

// DBNotifier écrit les notifications en base (affichées sur le tableau de
// bord). L'envoi d'emails est délégué à l'extérieur; ici seule la trace
// persistée compte.
type DBNotifier struct {
	DB *gorm.DB
}

func (n *DBNotifier) Notify(entrepriseID uint, typ, titre, message string) error {
	return n.DB.Create(&models.Notification{
		EntrepriseID: entrepriseID,
		Type:         typ,
		Titre:        titre,
		Message:      message,
	}).Error
}
