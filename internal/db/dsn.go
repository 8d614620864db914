package db

import "strings"

// IsPostgres reconnaît un DSN postgres (URL ou forme clé=valeur).
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

// NormalizeDSN accepte les deux schémas d'URL postgres et un chemin de
// fichier nu pour sqlite en développement.
func NormalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(dsn, "postgresql://")
	}
	return dsn
}
