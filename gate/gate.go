// Package gate fournit un contrôle d'accès par rôle : une table immuable
// rôle -> permissions, construite une fois au démarrage du process, puis
// uniquement consultée. Aucune mutation à chaud.
package gate

import (
	"errors"
	"strings"
)

// Sentinel errors returned by Authorize.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnknownRole  = errors.New("no permissions defined for role")
)

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView       Action = "view"
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionList       Action = "list"
	ActionTransition Action = "transition"
	ActionConvert    Action = "convert"
	ActionEncaisser  Action = "encaisser" // enregistrer un paiement
)

// Permission represents an allowed action on a resource type.
// Format: "resource:action" (e.g., "document:convert", "article:update").
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Wildcards for super permissions.
const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches checks if this permission matches a requested permission.
// Supports wildcards: "*:*" matches all, "document:*" matches all
// document actions.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	parts := strings.SplitN(string(p), ":", 2)
	reqParts := strings.SplitN(string(requested), ":", 2)
	if len(parts) != 2 || len(reqParts) != 2 {
		return false
	}
	return parts[0] == reqParts[0] && parts[1] == WildcardAll
}

// Gate est la table figée rôle -> permissions.
type Gate struct {
	roles map[string][]Permission
}

// New construit un Gate à partir de la table complète. La map est copiée :
// l'appelant ne peut pas la modifier après coup.
func New(roles map[string][]Permission) *Gate {
	copied := make(map[string][]Permission, len(roles))
	for role, perms := range roles {
		copied[role] = append([]Permission(nil), perms...)
	}
	return &Gate{roles: copied}
}

// Authorize retourne nil si le rôle possède la permission demandée.
func (g *Gate) Authorize(role string, resourceType string, action Action) error {
	perms, ok := g.roles[role]
	if !ok {
		return ErrUnknownRole
	}
	requested := NewPermission(resourceType, action)
	for _, p := range perms {
		if p.Matches(requested) {
			return nil
		}
	}
	return ErrUnauthorized
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate) Can(role string, resourceType string, action Action) bool {
	return g.Authorize(role, resourceType, action) == nil
}
