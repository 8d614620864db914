// Package config centralise la configuration du serveur, lue dans
// l'environnement (complété par .env en développement).
package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Port   string
	AppEnv string // development, production
	// DSN postgres en production; chemin/DSN sqlite accepté en local.
	DatabaseDSN string
	// Exécute les migrations SQL versionnées au démarrage.
	RunMigrations bool
	// Seed les données de référence (rôles) et un tenant de démonstration.
	SeedDB        bool
	SessionSecret string

	StripeSecretKey     string
	StripeWebhookSecret string
	// Statut initial d'une facture issue d'une conversion de devis
	// (brouillon ou envoye).
	InvoiceInitialStatus string

	LogLevel string
}

func Load() Config {
	return Config{
		Port:                 getenv("PORT", "8080"),
		AppEnv:               getenv("APP_ENV", "development"),
		DatabaseDSN:          getenv("DATABASE_DSN", "gestion.db"),
		RunMigrations:        os.Getenv("MIGRATIONS") == "1",
		SeedDB:               os.Getenv("DB_SEED") == "1",
		SessionSecret:        getenv("SESSION_SECRET", "devsessionsecret"),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		InvoiceInitialStatus: getenv("INVOICE_INITIAL_STATUS", "brouillon"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewLogger construit le logger applicatif : JSON structuré, niveau
// configurable, texte lisible en développement.
func NewLogger(cfg Config) *logrus.Logger {
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
