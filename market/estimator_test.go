package market

import "testing"

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for _, p := range []int{1, 2, 3, 4, 5} {
		w.Push(p)
	}
	if w.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", w.Len())
	}
	avg, ok := w.Avg()
	if !ok || avg != 4 {
		t.Fatalf("expected avg 4 of last three samples, got %d (ok=%v)", avg, ok)
	}
}

func TestWindowAvgTruncates(t *testing.T) {
	w := NewWindow(10)
	w.Push(5)
	w.Push(6)
	avg, ok := w.Avg()
	if !ok || avg != 5 {
		t.Fatalf("expected truncated avg 5, got %d", avg)
	}
}

func TestWindowEmptyNotReady(t *testing.T) {
	w := NewWindow(10)
	if _, ok := w.Avg(); ok {
		t.Fatal("empty window must not report an average")
	}
}

func TestEstimatorFairPerSymbol(t *testing.T) {
	est := NewEstimator(10)
	if _, ok := est.Fair("VALBZ"); ok {
		t.Fatal("fair value must be unavailable before any sample")
	}
	est.Observe("VALBZ", 500)
	fair, ok := est.Fair("VALBZ")
	if !ok || fair != 500 {
		t.Fatalf("expected fair 500, got %d (ok=%v)", fair, ok)
	}
	est.Observe("VALBZ", 503)
	if fair, _ := est.Fair("VALBZ"); fair != 501 {
		t.Fatalf("expected truncated fair 501, got %d", fair)
	}
}

func TestBasketRequiresAllLegs(t *testing.T) {
	est := NewEstimator(10)
	legs := []BasketLeg{{"GS", 2}, {"MS", 3}, {"WFC", 2}}

	est.Observe("GS", 100)
	est.Observe("MS", 50)
	if _, ok := est.Basket(3000, 10, legs); ok {
		t.Fatal("basket must be unavailable until every leg has a sample")
	}

	est.Observe("WFC", 70)
	fair, ok := est.Basket(3000, 10, legs)
	if !ok {
		t.Fatal("basket should be ready once all legs have samples")
	}
	// (3000 + 2*100 + 3*50 + 2*70) / 10
	if fair != 349 {
		t.Fatalf("expected composite 349, got %d", fair)
	}
}
