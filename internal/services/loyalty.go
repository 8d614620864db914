package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
)

// AccrueLoyalty crédite un point de fidélité par euro TTC encaissé.
// Best-effort chez tous les appelants : une erreur ici ne doit jamais
// faire échouer l'encaissement qui l'a déclenchée.
func AccrueLoyalty(db *gorm.DB, clientID uint, montant decimal.Decimal) error {
	points := montant.IntPart()
	if points <= 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		var compte models.LoyaltyAccount
		err := tx.Where("client_id = ?", clientID).First(&compte).Error
		if err == gorm.ErrRecordNotFound {
			compte = models.LoyaltyAccount{ClientID: clientID}
			if err := tx.Create(&compte).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return tx.Model(&models.LoyaltyAccount{}).Where("id = ?", compte.ID).
			Updates(map[string]interface{}{
				"points":       gorm.Expr("points + ?", points),
				"last_accrual": time.Now(),
			}).Error
	})
}
