package services

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/artisanat/gestion/internal/models"
)

// Préfixes de numérotation par type de document.
var numeroPrefix = map[string]string{
	models.DocTypeDevis:   "DEV",
	models.DocTypeFacture: "FAC",
	models.DocTypeAvoir:   "AVO",
}

// nextNumero attribue le prochain numéro de la série (entreprise, type, année).
// Doit être appelé dans la transaction qui crée le document : le compteur
// est verrouillé le temps de l'incrément, deux émissions concurrentes ne
// peuvent pas produire le même numéro.
func nextNumero(tx *gorm.DB, entrepriseID uint, docType string, emission time.Time) (string, error) {
	annee := emission.Year()
	var serie models.DocumentNumberSeries
	err := forUpdate(tx).
		Where("entreprise_id = ? AND doc_type = ? AND annee = ?", entrepriseID, docType, annee).
		First(&serie).Error
	if err == gorm.ErrRecordNotFound {
		serie = models.DocumentNumberSeries{EntrepriseID: entrepriseID, DocType: docType, Annee: annee}
		if err := tx.Create(&serie).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}
	serie.Compteur++
	if err := tx.Model(&models.DocumentNumberSeries{}).
		Where("id = ?", serie.ID).
		Update("compteur", serie.Compteur).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%05d", numeroPrefix[docType], annee, serie.Compteur), nil
}
