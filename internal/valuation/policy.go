package valuation

// Policy collects the tunable knobs of the pipeline. Several of these are
// market assumptions rather than derived values (notably MonthlyMarketDrift
// and AnnualGrowth), so they live here as named fields instead of inline
// literals and can be tested independently of the rest of the pipeline.
type Policy struct {
	// Adjustment terms, applied per unit of attribute difference.
	BedroomAdjustment   float64
	BathroomAdjustment  float64
	LandSizeAdjustment  float64
	FloorAreaAdjustment float64
	YearBuiltAdjustment float64

	// TypeMismatchPenalty multiplies the accumulated factor once when the
	// comparable's property type differs from the subject's.
	TypeMismatchPenalty float64

	// MonthlyMarketDrift is the assumed flat market growth per whole month
	// between the comparable's sale date and the valuation date.
	MonthlyMarketDrift float64

	// Weighting components. The flat defaults are the neutral midpoint of
	// the corresponding 0..weight range, used when the input is absent.
	SimilarityWeight float64
	RecencyWeight    float64
	RecencyDefault   float64
	RecencyCapMonths float64
	DistanceWeight   float64
	DistanceDefault  float64
	DistanceCapKm    float64

	// OutlierDiscount scales the weight of a flagged comparable; outliers
	// are discounted, never excluded.
	OutlierDiscount float64

	// IQRMultiplier widens the quartile bounds for outlier flagging.
	IQRMultiplier float64

	// Blend of weighted median and weighted mean for the point estimate.
	MedianBlendWeight float64
	MeanBlendWeight   float64

	// MinRangePct floors the half-width of the valuation range regardless
	// of how tight the comparable prices are.
	MinRangePct float64

	// BaseConfidence is the starting point of the confidence score.
	BaseConfidence float64

	// AnnualGrowth is a fixed reported figure, not derived from input.
	AnnualGrowth float64
}

// DefaultPolicy returns the production parameter set.
func DefaultPolicy() Policy {
	return Policy{
		BedroomAdjustment:   0.05,
		BathroomAdjustment:  0.03,
		LandSizeAdjustment:  0.10,
		FloorAreaAdjustment: 0.15,
		YearBuiltAdjustment: 0.005,
		TypeMismatchPenalty: 0.9,
		MonthlyMarketDrift:  0.005,
		SimilarityWeight:    0.4,
		RecencyWeight:       0.3,
		RecencyDefault:      0.15,
		RecencyCapMonths:    36,
		DistanceWeight:      0.3,
		DistanceDefault:     0.15,
		DistanceCapKm:       10,
		OutlierDiscount:     0.3,
		IQRMultiplier:       1.5,
		MedianBlendWeight:   0.7,
		MeanBlendWeight:     0.3,
		MinRangePct:         0.05,
		BaseConfidence:      0.7,
		AnnualGrowth:        0.05,
	}
}
