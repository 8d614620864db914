package db

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
)

// SeedDemo crée un tenant de démonstration complet : entreprise, admin,
// client et quelques articles. Idempotent, réservé au développement.
func SeedDemo(conn *gorm.DB) error {
	var count int64
	if err := conn.Model(&models.Entreprise{}).
		Where("siren = ?", "123456789").Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return conn.Transaction(func(tx *gorm.DB) error {
		ent := models.Entreprise{
			RaisonSociale: "Atelier Dupont",
			SIREN:         "123456789",
			SIRET:         "12345678900012",
			RedevableTVA:  true,
			Ville:         "Lyon",
			Email:         "contact@atelier-dupont.fr",
		}
		if err := tx.Create(&ent).Error; err != nil {
			return err
		}
		var admin models.Role
		if err := tx.Where("name = ?", models.RoleAdmin).First(&admin).Error; err != nil {
			return err
		}
		user := models.User{
			EntrepriseID: ent.ID,
			Email:        "demo@atelier-dupont.fr",
			Password:     string(hash),
			Nom:          "Dupont",
			Prenom:       "Marie",
			RoleID:       admin.ID,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		client := models.Client{
			EntrepriseID: ent.ID,
			Nom:          "Boulangerie Martin",
			Ville:        "Villeurbanne",
			Email:        "contact@boulangerie-martin.fr",
			PortalToken:  uuid.NewString(),
		}
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		articles := []models.Article{
			{
				EntrepriseID:   ent.ID,
				Reference:      "PRE-001",
				Designation:    "Main d'œuvre (heure)",
				PrixUnitaireHT: decimal.NewFromInt(45),
				TVATaux:        decimal.NewFromInt(20),
				Unite:          "heure",
			},
			{
				EntrepriseID:   ent.ID,
				Reference:      "FOU-001",
				Designation:    "Panneau chêne massif",
				PrixUnitaireHT: decimal.NewFromFloat(89.90),
				TVATaux:        decimal.NewFromInt(20),
				Stock:          decimal.NewFromInt(25),
				SuiviStock:     true,
			},
		}
		for i := range articles {
			if err := tx.Create(&articles[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
