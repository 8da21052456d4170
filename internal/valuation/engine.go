package valuation

import (
	"fmt"
	"time"
)

// Engine runs the comparable-sales pipeline: validate, flag outliers,
// adjust prices, weight, aggregate, score confidence, summarize trends.
// The stages run in that order only; no stage re-enters an earlier one.
// An Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	policy Policy
}

func NewEngine(p Policy) *Engine {
	return &Engine{policy: p}
}

// Valuate estimates a value range for the subject from its comparables.
// It is a pure function of the request: no I/O, nothing retained between
// calls, and with an explicit AsOf the output is bit-identical across
// repeated invocations. Failures are input or logic errors; an unexpected
// panic in the arithmetic is recovered and mapped onto the same error path
// so nothing escapes uncaught.
func (e *Engine) Valuate(req Request) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &Error{Code: CodeInternal, Message: fmt.Sprintf("valuation aborted: %v", r)}
		}
	}()

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	comps, err := validate(req)
	if err != nil {
		return Result{}, err
	}
	subject := *req.Subject

	flagOutliers(comps, e.policy)

	for i := range comps {
		applyAdjustments(&comps[i], subject, asOf, e.policy)
	}
	for i := range comps {
		comps[i].Weight = computeWeight(comps[i], asOf, e.policy)
	}

	agg, err := aggregate(comps, e.policy)
	if err != nil {
		return Result{}, err
	}

	confidence := scoreConfidence(comps, subject, agg.cv, asOf, e.policy)
	trends := summarizeTrends(comps, e.policy)

	audit := make([]AdjustedComparable, len(comps))
	for i, c := range comps {
		audit[i] = AdjustedComparable{
			ID:               c.ID,
			Address:          c.Address,
			SalePrice:        c.SalePrice,
			AdjustedPrice:    c.AdjustedPrice,
			AdjustmentFactor: c.AdjustmentFactor,
			Weight:           c.Weight,
			NormalizedWeight: c.NormalizedWeight,
			IsOutlier:        c.IsOutlier,
		}
	}

	return Result{
		ValuationLow:        agg.low,
		ValuationHigh:       agg.high,
		BaseValuation:       agg.base,
		Confidence:          confidence,
		AdjustedComparables: audit,
		Factors:             agg.factors,
		MarketTrends:        trends,
	}, nil
}
