package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestLineAmountsNominal(t *testing.T) {
	// 2 x 100.00 HT à 20%, sans remise => 200.00 / 40.00 / 240.00
	ht, tva, ttc := LineAmounts(d("2"), d("100.00"), d("20"), d("0"))
	if !ht.Equal(d("200.00")) || !tva.Equal(d("40.00")) || !ttc.Equal(d("240.00")) {
		t.Fatalf("got ht=%s tva=%s ttc=%s", ht, tva, ttc)
	}
	if !ttc.Equal(ht.Add(tva)) {
		t.Fatalf("ttc != ht+tva")
	}
}

func TestLineAmountsRemise(t *testing.T) {
	// 10% de remise sur 3 x 19.99 à 5.5%
	ht, tva, ttc := LineAmounts(d("3"), d("19.99"), d("5.5"), d("10"))
	if !ht.Equal(d("53.97")) { // 59.97 * 0.9 = 53.973 -> 53.97
		t.Fatalf("ht=%s", ht)
	}
	if !tva.Equal(d("2.97")) { // 53.97 * 0.055 = 2.96835 -> 2.97
		t.Fatalf("tva=%s", tva)
	}
	if !ttc.Equal(ht.Add(tva)) {
		t.Fatalf("ttc=%s", ttc)
	}
}

func TestLineAmountsZeroes(t *testing.T) {
	cases := []struct {
		nom                   string
		qte, pu, taux, remise string
	}{
		{"quantite nulle", "0", "100", "20", "0"},
		{"prix nul", "4", "0", "20", "0"},
		{"remise totale", "2", "50", "20", "100"},
	}
	for _, c := range cases {
		ht, tva, ttc := LineAmounts(d(c.qte), d(c.pu), d(c.taux), d(c.remise))
		if !ht.IsZero() || !tva.IsZero() || !ttc.IsZero() {
			t.Fatalf("%s: attendu 0, got ht=%s tva=%s ttc=%s", c.nom, ht, tva, ttc)
		}
	}
}

func TestLineAmountsNegativeQuantity(t *testing.T) {
	// Ligne d'avoir : le signe se propage sur les trois montants.
	ht, tva, ttc := LineAmounts(d("-2"), d("100.00"), d("20"), d("0"))
	if !ht.Equal(d("-200.00")) || !tva.Equal(d("-40.00")) || !ttc.Equal(d("-240.00")) {
		t.Fatalf("got ht=%s tva=%s ttc=%s", ht, tva, ttc)
	}
}

func TestLineAmountsScalesWithQuantity(t *testing.T) {
	ht1, _, _ := LineAmounts(d("1"), d("12.34"), d("20"), d("0"))
	ht5, _, _ := LineAmounts(d("5"), d("12.34"), d("20"), d("0"))
	if !ht5.Equal(ht1.Mul(d("5"))) {
		t.Fatalf("ht non linéaire: 1->%s 5->%s", ht1, ht5)
	}
}

func TestTotalsSumRoundedLines(t *testing.T) {
	// La politique "arrondi par ligne puis somme" est figée ici :
	// deux lignes à 0.125 HT donnent 0.13 + 0.13 = 0.26, pas round(0.25).
	var tot LineTotals
	for i := 0; i < 2; i++ {
		ht, tva, ttc := LineAmounts(d("0.5"), d("0.25"), d("20"), d("0"))
		tot.Add(ht, tva, ttc)
	}
	if !tot.HT.Equal(d("0.26")) {
		t.Fatalf("HT=%s, attendu 0.26 (arrondi par ligne)", tot.HT)
	}
	if !tot.TTC.Equal(tot.HT.Add(tot.TVA)) {
		t.Fatalf("TTC=%s HT=%s TVA=%s", tot.TTC, tot.HT, tot.TVA)
	}
}

func TestFromCents(t *testing.T) {
	if !FromCents(24000).Equal(d("240.00")) {
		t.Fatalf("FromCents(24000)=%s", FromCents(24000))
	}
	if !FromCents(1).Equal(d("0.01")) {
		t.Fatalf("FromCents(1)=%s", FromCents(1))
	}
}

func TestResteAPayer(t *testing.T) {
	if !ResteAPayer(d("240.00"), d("100.00")).Equal(d("140.00")) {
		t.Fatalf("reste incorrect")
	}
	// Trop-perçu : borné à zéro.
	if !ResteAPayer(d("240.00"), d("300.00")).IsZero() {
		t.Fatalf("reste doit être borné à 0")
	}
}
