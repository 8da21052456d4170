package valuation

import (
	"math"
	"sort"
)

type aggregates struct {
	weightedMedian float64
	weightedMean   float64
	base           float64
	low            float64
	high           float64
	cv             float64
	factors        Factors
}

// aggregate normalizes the weights across all comparables (outliers
// included, already discounted), blends a weighted median and weighted mean
// into the point estimate, and derives a confidence-scaled range around it.
// It mutates the comparables to attach their normalized weights.
func aggregate(comps []Comparable, p Policy) (aggregates, error) {
	if len(comps) < 2 {
		return aggregates{}, &Error{
			Code:    CodeInsufficientComparables,
			Message: "at least two comparables with a usable sale price are required to produce a valuation range",
		}
	}

	var sumW float64
	for _, c := range comps {
		sumW += c.Weight
	}
	if sumW <= 0 {
		return aggregates{}, invalidInput("comparable weights sum to zero")
	}
	for i := range comps {
		comps[i].NormalizedWeight = comps[i].Weight / sumW
	}

	// Weighted median: walk cumulative normalized weight over the
	// price-sorted comparables and take the first one at or past 0.5.
	// A hard selection, no interpolation between neighbors.
	order := make([]int, len(comps))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return comps[order[a]].AdjustedPrice < comps[order[b]].AdjustedPrice
	})

	median := comps[order[len(order)-1]].AdjustedPrice
	cum := 0.0
	for _, idx := range order {
		cum += comps[idx].NormalizedWeight
		if cum >= 0.5 {
			median = comps[idx].AdjustedPrice
			break
		}
	}

	var mean float64
	for _, c := range comps {
		mean += c.AdjustedPrice * c.NormalizedWeight
	}

	base := p.MedianBlendWeight*median + p.MeanBlendWeight*mean

	var variance float64
	for _, c := range comps {
		d := c.AdjustedPrice - mean
		variance += c.NormalizedWeight * d * d
	}
	stdDev := math.Sqrt(variance)

	cv := 0.0
	if mean > 0 {
		cv = stdDev / mean
	}
	rangePct := math.Max(p.MinRangePct, cv)

	return aggregates{
		weightedMedian: median,
		weightedMean:   mean,
		base:           base,
		low:            base * (1 - rangePct),
		high:           base * (1 + rangePct),
		cv:             cv,
		factors:        unitFactors(comps),
	}, nil
}

// unitFactors derives per-attribute unit values used to explain the
// valuation. Each average renormalizes weights over only the comparables
// carrying that attribute; this local normalization is intentionally
// narrower than the global one used for the median and mean.
func unitFactors(comps []Comparable) Factors {
	return Factors{
		BedroomValue: weightedUnitValue(comps, func(c Comparable) (float64, bool) {
			if c.Bedrooms == nil || *c.Bedrooms <= 0 {
				return 0, false
			}
			return float64(*c.Bedrooms), true
		}),
		LandSizeValue: weightedUnitValue(comps, func(c Comparable) (float64, bool) {
			if c.LandSize == nil || *c.LandSize <= 0 {
				return 0, false
			}
			return *c.LandSize, true
		}),
		FloorAreaValue: weightedUnitValue(comps, func(c Comparable) (float64, bool) {
			if c.FloorArea == nil || *c.FloorArea <= 0 {
				return 0, false
			}
			return *c.FloorArea, true
		}),
	}
}

func weightedUnitValue(comps []Comparable, attr func(Comparable) (float64, bool)) *float64 {
	var sum, sumW float64
	for _, c := range comps {
		v, ok := attr(c)
		if !ok {
			continue
		}
		sum += c.Weight * (c.AdjustedPrice / v)
		sumW += c.Weight
	}
	if sumW <= 0 {
		return nil
	}
	out := sum / sumW
	return &out
}
