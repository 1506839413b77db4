package property

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/yanqian/rent-estimator/pkg/errors"
)

// Edit carries user changes to a FormState. Nil fields are left as they are.
type Edit struct {
	Location   *string  `json:"location,omitempty"`
	Bedrooms   *int     `json:"bedrooms,omitempty"`
	Bathrooms  *float64 `json:"bathrooms,omitempty"`
	SizeSqft   *float64 `json:"size_sqft,omitempty"`
	Furnishing *string  `json:"furnishing,omitempty"`
}

// IsZero reports whether the edit changes nothing.
func (e Edit) IsZero() bool {
	return e.Location == nil && e.Bedrooms == nil && e.Bathrooms == nil && e.SizeSqft == nil && e.Furnishing == nil
}

// Apply returns a copy of s with the edit applied. The edit is rejected as a
// whole when any field is invalid.
func (s FormState) Apply(e Edit) (FormState, error) {
	next := s
	if e.Location != nil {
		if !IsLocation(*e.Location) {
			return s, invalid("unknown location %q", *e.Location)
		}
		next.Location = *e.Location
	}
	if e.Bedrooms != nil {
		if !IsBedroomOption(*e.Bedrooms) {
			return s, invalid("bedrooms must be between 0 and 4")
		}
		next.Bedrooms = *e.Bedrooms
	}
	if e.Bathrooms != nil {
		v := *e.Bathrooms
		if !isFinite(v) || v < MinBathrooms {
			return s, invalid("bathrooms must be a number of at least %d", MinBathrooms)
		}
		next.Bathrooms = v
	}
	if e.SizeSqft != nil {
		v := *e.SizeSqft
		if !isFinite(v) || v <= 0 {
			return s, invalid("size must be a positive number")
		}
		next.SizeSqft = v
	}
	if e.Furnishing != nil {
		if !IsFurnishing(*e.Furnishing) {
			return s, invalid("unknown furnishing %q", *e.Furnishing)
		}
		next.Furnishing = *e.Furnishing
	}
	return next, nil
}

// ParseEdit builds an Edit from raw form values. Missing keys are skipped;
// values that do not parse fail with invalid_input.
func ParseEdit(get func(key string) (string, bool)) (Edit, error) {
	var e Edit
	if v, ok := get("location"); ok {
		e.Location = &v
	}
	if v, ok := get("furnishing"); ok {
		e.Furnishing = &v
	}
	if v, ok := get("bedrooms"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Edit{}, apperrors.Wrap("invalid_input", "bedrooms must be a whole number", err)
		}
		e.Bedrooms = &n
	}
	if v, ok := get("bathrooms"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Edit{}, apperrors.Wrap("invalid_input", "bathrooms must be a number", err)
		}
		e.Bathrooms = &f
	}
	if v, ok := get("size_sqft"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Edit{}, apperrors.Wrap("invalid_input", "size must be a number", err)
		}
		e.SizeSqft = &f
	}
	return e, nil
}

func invalid(format string, args ...any) error {
	return apperrors.Wrap("invalid_input", fmt.Sprintf(format, args...), nil)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
