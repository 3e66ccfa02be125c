package domain

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ValidateKey checks the identifying fields for the given mode.
func ValidateKey(key Key) error {
	switch key.Mode {
	case ModeCountry:
		if !ValidCountryCode(key.CountryCode) {
			return ErrInvalidCountryCode
		}
		if key.Carrier != "" || key.ServiceCode != "" || key.Zone != "" {
			return ErrInvalidMode
		}
	case ModeCarrier:
		if key.Carrier == "" {
			return ErrInvalidCarrier
		}
		if key.Zone == "" {
			return ErrInvalidZone
		}
		if key.CountryCode != "" {
			return ErrInvalidMode
		}
	default:
		return ErrInvalidMode
	}
	return nil
}

// ValidateBrackets enforces the template invariants: flat kilogram keys
// are unique and within 1..21, band ranges are non-overlapping, and all
// prices are non-negative. A template is rejected wholesale on the
// first violation.
func ValidateBrackets(brackets []BracketInput) error {
	seenKg := make(map[int]bool)
	bands := make([]BracketInput, 0, len(brackets))

	for _, b := range brackets {
		switch b.Kind {
		case BracketFlatUnder21:
			if b.Kg < 1 || b.Kg > MaxFlatKg {
				return fmt.Errorf("%w: flat kg %d out of range 1..%d", ErrInvalidBracket, b.Kg, MaxFlatKg)
			}
			if b.Price.IsNegative() {
				return fmt.Errorf("%w: flat kg %d has negative price", ErrInvalidBracket, b.Kg)
			}
			if seenKg[b.Kg] {
				return fmt.Errorf("%w: kg %d", ErrDuplicateBracketKg, b.Kg)
			}
			seenKg[b.Kg] = true
		case BracketPerKgOver21:
			if b.MinKg < 0 {
				return fmt.Errorf("%w: band min %.3f is negative", ErrInvalidBracket, b.MinKg)
			}
			if b.MaxKg != nil && *b.MaxKg <= b.MinKg {
				return fmt.Errorf("%w: band max %.3f <= min %.3f", ErrInvalidBracket, *b.MaxKg, b.MinKg)
			}
			if b.PricePerKg.IsNegative() || b.BasePrice.IsNegative() {
				return fmt.Errorf("%w: band at min %.3f has negative price", ErrInvalidBracket, b.MinKg)
			}
			bands = append(bands, b)
		default:
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidBracket, b.Kind)
		}
	}

	sort.SliceStable(bands, func(i, j int) bool { return bands[i].MinKg < bands[j].MinKg })
	for i := 1; i < len(bands); i++ {
		prev := bands[i-1]
		if prev.MaxKg == nil || *prev.MaxKg > bands[i].MinKg {
			return fmt.Errorf("%w: band starting at %.3f overlaps band starting at %.3f",
				ErrOverlappingBands, prev.MinKg, bands[i].MinKg)
		}
	}
	return nil
}

// ValidateSurcharges enforces the amount-xor-percent rule and sane
// date/weight windows.
func ValidateSurcharges(surcharges []SurchargeInput) error {
	for i, s := range surcharges {
		if (s.Amount == nil) == (s.Percent == nil) {
			return fmt.Errorf("%w: row %d must set exactly one of amount/percent", ErrInvalidSurcharge, i+1)
		}
		if s.Amount != nil && s.Amount.IsNegative() {
			return fmt.Errorf("%w: row %d has negative amount", ErrInvalidSurcharge, i+1)
		}
		if s.Percent != nil && s.Percent.IsNegative() {
			return fmt.Errorf("%w: row %d has negative percent", ErrInvalidSurcharge, i+1)
		}
		switch s.Type {
		case SurchargePeakSeason, SurchargeFuel, SurchargeRemoteArea, SurchargeOther:
		default:
			return fmt.Errorf("%w: row %d has unknown type %q", ErrInvalidSurcharge, i+1, s.Type)
		}
		if s.ValidFrom != nil && s.ValidTo != nil && s.ValidTo.Before(*s.ValidFrom) {
			return fmt.Errorf("%w: row %d valid_to before valid_from", ErrInvalidSurcharge, i+1)
		}
		if s.MinWeightKg != nil && s.MaxWeightKg != nil && *s.MaxWeightKg < *s.MinWeightKg {
			return fmt.Errorf("%w: row %d max_weight below min_weight", ErrInvalidSurcharge, i+1)
		}
	}
	return nil
}

// ZeroIfNil is a small helper for optional decimals.
func ZeroIfNil(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
