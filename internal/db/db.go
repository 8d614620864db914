// Package db ouvre la connexion, migre le schéma et seed les données de
// référence.
package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/artisanat/gestion/internal/models"
)

const connectAttempts = 5

// Connect ouvre la base avec quelques tentatives : au démarrage d'un
// déploiement, postgres peut être encore en cours de lancement.
func Connect(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	normalized := NormalizeDSN(dsn)
	var dial gorm.Dialector
	if IsPostgres(normalized) {
		dial = postgres.Open(normalized)
	} else {
		dial = sqlite.Open(normalized)
	}
	var conn *gorm.DB
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		conn, err = gorm.Open(dial, &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		})
		if err == nil {
			return conn, nil
		}
		log.WithError(err).Warnf("connexion base en échec (tentative %d/%d)", attempt, connectAttempts)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return nil, fmt.Errorf("connexion base impossible après %d tentatives: %w", connectAttempts, err)
}

// AutoMigrate aligne le schéma sur les modèles. Utilisé en développement et
// en test; en production les migrations SQL versionnées font foi.
func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&models.Entreprise{},
		&models.Role{},
		&models.User{},
		&models.Client{},
		&models.LoyaltyAccount{},
		&models.Article{},
		&models.Document{},
		&models.DocumentLigne{},
		&models.Paiement{},
		&models.DocumentNumberSeries{},
		&models.Abonnement{},
		&models.ProcessedEvent{},
		&models.Notification{},
		&models.AuditLog{},
	)
}

// SeedRoles garantit la présence des trois rôles. Idempotent.
func SeedRoles(conn *gorm.DB) error {
	roles := []models.Role{
		{Name: models.RoleAdmin, Description: "Accès complet"},
		{Name: models.RoleGestionnaire, Description: "Gestion métier, sans administration du compte"},
		{Name: models.RoleVendeur, Description: "Comptoir et consultation"},
	}
	for _, role := range roles {
		var existing models.Role
		if err := conn.Where(models.Role{Name: role.Name}).
			Attrs(role).
			FirstOrCreate(&existing).Error; err != nil {
			return err
		}
	}
	return nil
}
