package services

import (
	"errors"
	"fmt"
)

// Taxonomie d'erreurs du domaine. La couche HTTP mappe chaque type sur un
// statut : ValidationError -> 400, NotFoundError -> 404,
// InvalidStateError -> 409.

// ValidationError : entrée malformée (montant non positif, champ manquant...).
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// InvalidStateError : transition ou conversion interdite par le statut courant.
type InvalidStateError struct {
	Statut string // statut courant du document
	Action string // action tentée
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("action %q interdite depuis le statut %q", e.Action, e.Statut)
}

// NotFoundError : entité référencée inexistante (ou hors tenant).
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d introuvable", e.Entity, e.ID)
}

// ErrDuplicateReference : un paiement portant la même référence externe
// existe déjà sur ce document. Le rejeu d'un webhook s'appuie dessus pour
// rester idempotent.
var ErrDuplicateReference = errors.New("paiement avec cette référence déjà enregistré")
