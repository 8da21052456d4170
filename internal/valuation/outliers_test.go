package valuation

import "testing"

func compsWithPrices(prices ...float64) []Comparable {
	out := make([]Comparable, len(prices))
	for i, p := range prices {
		out[i] = Comparable{SalePrice: p}
	}
	return out
}

func TestFlagOutliersMarksExtremes(t *testing.T) {
	// Sorted: [98 99 100 101 102 103 104 1000], n=8.
	// Q1 = index 2 = 100, Q3 = index 6 = 104, IQR = 4, bounds [94, 110].
	comps := compsWithPrices(101, 1000, 99, 104, 98, 103, 100, 102)

	flagOutliers(comps, DefaultPolicy())

	for i, c := range comps {
		wantOutlier := c.SalePrice == 1000
		if c.IsOutlier != wantOutlier {
			t.Fatalf("comp %d (price %v): isOutlier = %v, want %v", i, c.SalePrice, c.IsOutlier, wantOutlier)
		}
	}
}

func TestFlagOutliersLowSide(t *testing.T) {
	comps := compsWithPrices(500, 498, 502, 501, 499, 10)

	flagOutliers(comps, DefaultPolicy())

	flagged := 0
	for _, c := range comps {
		if c.IsOutlier {
			flagged++
			if c.SalePrice != 10 {
				t.Fatalf("unexpected outlier at price %v", c.SalePrice)
			}
		}
	}
	if flagged != 1 {
		t.Fatalf("flagged %d comparables, want 1", flagged)
	}
}

func TestFlagOutliersRetainsEverything(t *testing.T) {
	comps := compsWithPrices(100, 100, 100, 5000)
	flagOutliers(comps, DefaultPolicy())
	if len(comps) != 4 {
		t.Fatalf("working set shrank to %d", len(comps))
	}
}

func TestFlagOutliersTinySamples(t *testing.T) {
	// n <= 3 gives degenerate quartiles; the arithmetic still runs and
	// nothing panics.
	for _, prices := range [][]float64{{100}, {100, 200}, {100, 200, 300}} {
		comps := compsWithPrices(prices...)
		flagOutliers(comps, DefaultPolicy())
	}
}
