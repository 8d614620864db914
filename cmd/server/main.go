package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/artisanat/gestion/auth"
	"github.com/artisanat/gestion/internal/billing"
	"github.com/artisanat/gestion/internal/config"
	"github.com/artisanat/gestion/internal/db"
	"github.com/artisanat/gestion/internal/handlers"
	"github.com/artisanat/gestion/internal/models"
	"github.com/artisanat/gestion/internal/server"
	"github.com/artisanat/gestion/internal/services"
)

func main() {
	// .env facultatif : l'environnement réel prime en production.
	_ = godotenv.Load()
	cfg := config.Load()
	log := config.NewLogger(cfg)
	auth.SetSecret(cfg.SessionSecret)

	conn, err := db.Connect(cfg.DatabaseDSN, log)
	if err != nil {
		log.WithError(err).Fatal("base de données inaccessible")
	}

	if cfg.RunMigrations && db.IsPostgres(cfg.DatabaseDSN) {
		if err := db.RunMigrations(cfg.DatabaseDSN, "migrations"); err != nil {
			log.WithError(err).Fatal("migrations en échec")
		}
	} else {
		if err := db.AutoMigrate(conn); err != nil {
			log.WithError(err).Fatal("auto-migration en échec")
		}
	}
	if err := db.SeedRoles(conn); err != nil {
		log.WithError(err).Fatal("seed des rôles en échec")
	}
	if cfg.SeedDB {
		if err := db.SeedDemo(conn); err != nil {
			log.WithError(err).Warn("seed de démonstration en échec")
		}
	}

	// Une session dont l'utilisateur a disparu est invalidée au vol.
	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var n int64
		if err := conn.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", uid).Count(&n).Error; err != nil {
			return false
		}
		return n > 0
	})

	docs := services.NewDocumentService(conn)
	if cfg.InvoiceInitialStatus == models.StatutEnvoye {
		docs.InitialInvoiceStatus = models.StatutEnvoye
	}

	reconciler := billing.NewReconciler(
		conn,
		docs,
		billing.NewStripeGateway(cfg.StripeSecretKey),
		&billing.DBNotifier{DB: conn},
		log,
	)

	h := handlers.New(conn, docs, server.NewGate(), reconciler, log, cfg.StripeWebhookSecret)
	router := server.NewRouter(h, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("serveur démarré")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("serveur arrêté sur erreur")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("arrêt propre impossible")
	}
	log.Info("serveur arrêté")
}
