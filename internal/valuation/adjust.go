package valuation

import "time"

// applyAdjustments derives the price-adjustment factor for one comparable.
// Terms apply in a fixed order: the additive attribute terms first, then the
// one-shot property-type penalty, then the time-of-sale drift. Reordering
// changes the numeric result. Any attribute missing on either side skips its
// term.
func applyAdjustments(c *Comparable, subject SubjectDetails, asOf time.Time, p Policy) {
	factor := 1.0

	if subject.Bedrooms != nil && c.Bedrooms != nil {
		factor += float64(*subject.Bedrooms-*c.Bedrooms) * p.BedroomAdjustment
	}
	if subject.Bathrooms != nil && c.Bathrooms != nil {
		factor += (*subject.Bathrooms - *c.Bathrooms) * p.BathroomAdjustment
	}
	if subject.LandSize != nil && c.LandSize != nil && *c.LandSize > 0 {
		factor += (*subject.LandSize / *c.LandSize - 1) * p.LandSizeAdjustment
	}
	if subject.FloorArea != nil && c.FloorArea != nil && *c.FloorArea > 0 {
		factor += (*subject.FloorArea / *c.FloorArea - 1) * p.FloorAreaAdjustment
	}
	if subject.YearBuilt != nil && c.YearBuilt != nil {
		factor += float64(*subject.YearBuilt-*c.YearBuilt) * p.YearBuiltAdjustment
	}

	// Flat penalty, applied once, not per mismatched attribute.
	if c.PropertyType != subject.PropertyType {
		factor *= p.TypeMismatchPenalty
	}

	if c.SaleDate != nil {
		factor += float64(monthsBetween(*c.SaleDate, asOf)) * p.MonthlyMarketDrift
	}

	c.AdjustmentFactor = factor
	c.AdjustedPrice = c.SalePrice * factor
}

// monthsBetween counts whole calendar months from one date to a later one.
// A sale date in the future counts as zero months.
func monthsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
