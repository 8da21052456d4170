package valuation

import "sort"

// flagOutliers marks comparables whose sale price falls outside
// [Q1 - k*IQR, Q3 + k*IQR]. Quartiles are positional: Q1 is the sorted
// price at index floor(n*0.25) and Q3 at floor(n*0.75), no interpolation.
// Flagged comparables stay in the working set; later stages discount them
// instead of dropping them. For n <= 3 the bounds can be wide or
// degenerate; small sets are not special-cased.
func flagOutliers(comps []Comparable, p Policy) {
	n := len(comps)
	if n == 0 {
		return
	}
	prices := make([]float64, n)
	for i, c := range comps {
		prices[i] = c.SalePrice
	}
	sort.Float64s(prices)

	q1 := prices[n/4]
	q3 := prices[n*3/4]
	iqr := q3 - q1
	lower := q1 - p.IQRMultiplier*iqr
	upper := q3 + p.IQRMultiplier*iqr

	for i := range comps {
		if comps[i].SalePrice < lower || comps[i].SalePrice > upper {
			comps[i].IsOutlier = true
		}
	}
}
