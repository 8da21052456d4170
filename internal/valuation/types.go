package valuation

import "time"

const Disclaimer = "This is an automated comparable-sales estimate, not a formal appraisal. " +
	"The range reflects the supplied comparables and default market assumptions only."

// SubjectDetails describes the property being valued. It is constructed per
// request and carries no identity. All attributes except PropertyType are
// optional; a missing attribute simply skips the corresponding adjustment.
type SubjectDetails struct {
	PropertyType string   `json:"property_type"`
	Bedrooms     *int     `json:"bedrooms,omitempty"`
	Bathrooms    *float64 `json:"bathrooms,omitempty"`
	LandSize     *float64 `json:"land_size,omitempty"`
	FloorArea    *float64 `json:"floor_area,omitempty"`
	YearBuilt    *int     `json:"year_built,omitempty"`
}

// Comparable is a previously sold reference property. The pipeline attaches
// its derived fields to the same record rather than keeping a parallel
// collection, so the audit trail always matches the working set.
type Comparable struct {
	ID              string     `json:"id"`
	Address         string     `json:"address,omitempty"`
	PropertyType    string     `json:"property_type"`
	Bedrooms        *int       `json:"bedrooms,omitempty"`
	Bathrooms       *float64   `json:"bathrooms,omitempty"`
	LandSize        *float64   `json:"land_size,omitempty"`
	FloorArea       *float64   `json:"floor_area,omitempty"`
	YearBuilt       *int       `json:"year_built,omitempty"`
	SaleDate        *time.Time `json:"sale_date,omitempty"`
	SalePrice       float64    `json:"sale_price"`
	SimilarityScore float64    `json:"similarity_score"`
	DistanceKm      *float64   `json:"distance_km,omitempty"`

	// Derived by the pipeline.
	IsOutlier        bool    `json:"is_outlier"`
	AdjustmentFactor float64 `json:"adjustment_factor"`
	AdjustedPrice    float64 `json:"adjusted_price"`
	Weight           float64 `json:"weight"`
	NormalizedWeight float64 `json:"normalized_weight"`
}

// Request is the engine input. AsOf anchors every date computation (months
// since sale, recency weighting); when zero the engine fills it with the
// current UTC time once at entry, so a caller that supplies AsOf gets
// bit-identical output on repeated calls.
type Request struct {
	Subject     *SubjectDetails `json:"subject"`
	Comparables []Comparable    `json:"comparables"`
	AsOf        time.Time       `json:"as_of,omitempty"`
}

// AdjustedComparable is the per-comparable audit entry returned to callers.
type AdjustedComparable struct {
	ID               string  `json:"id"`
	Address          string  `json:"address,omitempty"`
	SalePrice        float64 `json:"sale_price"`
	AdjustedPrice    float64 `json:"adjusted_price"`
	AdjustmentFactor float64 `json:"adjustment_factor"`
	Weight           float64 `json:"weight"`
	NormalizedWeight float64 `json:"normalized_weight"`
	IsOutlier        bool    `json:"is_outlier"`
}

// Factors carries per-attribute unit values derived from the comparables.
// A nil field means no comparable carried that attribute. The upstream
// contract also declared bathroom_value, location_factor and age_adjustment
// but never populated them; they are omitted here rather than guessed.
type Factors struct {
	BedroomValue   *float64 `json:"bedroom_value,omitempty"`
	LandSizeValue  *float64 `json:"land_size_value,omitempty"`
	FloorAreaValue *float64 `json:"floor_area_value,omitempty"`
}

// MarketTrends summarizes the comparable set. MedianPrice is the plain
// unweighted median of adjusted prices, deliberately distinct from the
// weighted median used for the valuation itself.
type MarketTrends struct {
	MedianPrice  float64 `json:"median_price"`
	PricePerSqm  float64 `json:"price_per_sqm"`
	AnnualGrowth float64 `json:"annual_growth"`
}

// Result is the engine output. The caller owns it; nothing is retained
// between invocations.
type Result struct {
	ValuationLow        float64              `json:"valuation_low"`
	ValuationHigh       float64              `json:"valuation_high"`
	BaseValuation       float64              `json:"base_valuation"`
	Confidence          float64              `json:"valuation_confidence"`
	AdjustedComparables []AdjustedComparable `json:"adjusted_comparables"`
	Factors             Factors              `json:"valuation_factors"`
	MarketTrends        MarketTrends         `json:"market_trends"`
}

// Envelope is the wire-level response shape: success with data, or a bare
// error string with no partial result.
type Envelope struct {
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Data    *Result `json:"data,omitempty"`
}

// BuildEnvelope maps a (Result, error) pair onto the response contract.
func BuildEnvelope(res Result, err error) Envelope {
	if err != nil {
		return Envelope{Success: false, Error: err.Error()}
	}
	return Envelope{Success: true, Data: &res}
}
