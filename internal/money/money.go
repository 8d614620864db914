// Package money centralise le calcul des montants HT/TVA/TTC.
//
// Politique d'arrondi : chaque montant est arrondi à 2 décimales au niveau
// de la ligne, puis les totaux somment les lignes déjà arrondies. Les totaux
// persistés sont donc toujours la somme exacte des lignes affichées, quel
// que soit le nombre d'éditions successives du document.
package money

import "github.com/shopspring/decimal"

var cent = decimal.New(100, 0)

// Round2 arrondit au centime (arrondi commercial, moitié vers le haut).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineAmounts calcule les montants d'une ligne de document.
//
//	ht  = quantite * prixUnitaireHT * (1 - remisePourcent/100)
//	tva = ht * tvaTaux/100
//	ttc = ht + tva
//
// Une quantité négative (ligne d'avoir) propage son signe sur les trois
// montants. Quantité ou prix nul, ou remise de 100%, donnent des montants nuls.
func LineAmounts(quantite, prixUnitaireHT, tvaTaux, remisePourcent decimal.Decimal) (ht, tva, ttc decimal.Decimal) {
	brut := quantite.Mul(prixUnitaireHT)
	remise := decimal.NewFromInt(1).Sub(remisePourcent.Div(cent))
	ht = Round2(brut.Mul(remise))
	tva = Round2(ht.Mul(tvaTaux).Div(cent))
	ttc = ht.Add(tva)
	return ht, tva, ttc
}

// LineTotals agrège des montants de lignes déjà arrondis.
type LineTotals struct {
	HT, TVA, TTC decimal.Decimal
}

// Add cumule une ligne dans les totaux.
func (t *LineTotals) Add(ht, tva, ttc decimal.Decimal) {
	t.HT = t.HT.Add(ht)
	t.TVA = t.TVA.Add(tva)
	t.TTC = t.TTC.Add(ttc)
}

// FromCents convertit un montant en unités mineures (centimes, format du
// prestataire de paiement) vers les unités majeures à 2 décimales.
// À appeler exactement une fois, à la frontière webhook.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ResteAPayer calcule le solde restant dû, borné à zéro.
func ResteAPayer(totalTTC, totalPaye decimal.Decimal) decimal.Decimal {
	reste := totalTTC.Sub(totalPaye)
	if reste.IsNegative() {
		return decimal.Zero.Round(2)
	}
	return Round2(reste)
}
