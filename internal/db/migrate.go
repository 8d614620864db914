package db

import (
	"errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applique les migrations SQL versionnées du répertoire donné.
// Postgres uniquement; une base déjà à jour n'est pas une erreur.
func RunMigrations(dsn, dir string) error {
	m, err := migrate.New("file://"+dir, NormalizeDSN(dsn))
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
