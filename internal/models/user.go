package models

import "time"

// User & auth related models
type User struct {
	ID           uint       `gorm:"primaryKey"`
	EntrepriseID uint       `gorm:"not null;index"` // tenant
	Entreprise   Entreprise `gorm:"foreignKey:EntrepriseID"`
	Email        string     `gorm:"unique;not null;index"`
	Password     string     `gorm:"not null"` // hashé (bcrypt)
	Nom          string     `gorm:"index"`
	Prenom       string     `gorm:"index"`
	RoleID       uint       // clé étrangère vers Role
	Role         Role       `gorm:"foreignKey:RoleID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Role struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"unique;not null"` // admin, gestionnaire, vendeur
	Description string // optionnel
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Rôles seedés à la migration. La table des permissions associée est
// figée au démarrage (enregistrée dans le gate, jamais modifiée ensuite).
const (
	RoleAdmin        = "admin"
	RoleGestionnaire = "gestionnaire"
	RoleVendeur      = "vendeur"
)
