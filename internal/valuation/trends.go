package valuation

import "sort"

// summarizeTrends reports an unweighted median of adjusted prices (averaging
// the two middle values on even counts), a mean price per square meter of
// floor area, and the fixed annual growth assumption. This median answers a
// different question than the aggregator's weighted one and the two must not
// be unified.
func summarizeTrends(comps []Comparable, p Policy) MarketTrends {
	prices := make([]float64, len(comps))
	for i, c := range comps {
		prices[i] = c.AdjustedPrice
	}
	sort.Float64s(prices)

	var median float64
	n := len(prices)
	switch {
	case n == 0:
		median = 0
	case n%2 == 1:
		median = prices[n/2]
	default:
		median = (prices[n/2-1] + prices[n/2]) / 2
	}

	var sum float64
	counted := 0
	for _, c := range comps {
		if c.FloorArea != nil && *c.FloorArea > 0 {
			sum += c.AdjustedPrice / *c.FloorArea
			counted++
		}
	}
	pricePerSqm := 0.0
	if counted > 0 {
		pricePerSqm = sum / float64(counted)
	} else {
		// Crude placeholder inherited from the upstream contract when no
		// comparable carries a floor area. Kept for compatibility; a
		// principled default would need regional price data.
		pricePerSqm = median / 100
	}

	return MarketTrends{
		MedianPrice:  median,
		PricePerSqm:  pricePerSqm,
		AnnualGrowth: p.AnnualGrowth,
	}
}
