package property

import "strconv"

// Furnishing levels accepted by the prediction service.
const (
	FurnishingUnfurnished = "Unfurnished"
	FurnishingPartly      = "Partly Furnished"
	FurnishingFurnished   = "Furnished"
)

// Widget bounds rendered on the bathrooms input. Only the lower bound is enforced.
const (
	MinBathrooms = 1
	MaxBathrooms = 6
)

var (
	locations = []string{
		"Al Nahda",
		"Business Bay",
		"Discovery Gardens",
		"Downtown Dubai",
		"Dubai Marina",
		"Dubai Silicon Oasis",
		"Dubai Sports City",
		"International City",
		"Jumeirah Beach Residence (JBR)",
		"Jumeirah Lake Towers (JLT)",
		"Jumeirah Village Circle (JVC)",
		"Palm Jumeirah",
	}
	furnishings    = []string{FurnishingUnfurnished, FurnishingPartly, FurnishingFurnished}
	bedroomOptions = []int{0, 1, 2, 3, 4}
)

// FormState is the full set of attributes submitted for an estimate.
type FormState struct {
	Location   string  `json:"location"`
	Bedrooms   int     `json:"bedrooms"`
	Bathrooms  float64 `json:"bathrooms"`
	SizeSqft   float64 `json:"size_sqft"`
	Furnishing string  `json:"furnishing"`
}

// DefaultFormState returns the state a freshly mounted form starts with.
func DefaultFormState() FormState {
	return FormState{
		Location:   "Dubai Marina",
		Bedrooms:   1,
		Bathrooms:  2,
		SizeSqft:   800,
		Furnishing: FurnishingFurnished,
	}
}

// Locations lists the selectable areas in display order.
func Locations() []string {
	return append([]string(nil), locations...)
}

// Furnishings lists the selectable furnishing levels in display order.
func Furnishings() []string {
	return append([]string(nil), furnishings...)
}

// BedroomOptions lists the selectable bedroom counts.
func BedroomOptions() []int {
	return append([]int(nil), bedroomOptions...)
}

// BedroomLabel renders a bedroom count the way the selector shows it.
func BedroomLabel(n int) string {
	if n == 0 {
		return "Studio"
	}
	return strconv.Itoa(n)
}

// IsLocation reports whether name is one of the known areas.
func IsLocation(name string) bool {
	return contains(locations, name)
}

// IsFurnishing reports whether value is a known furnishing level.
func IsFurnishing(value string) bool {
	return contains(furnishings, value)
}

// IsBedroomOption reports whether n is a selectable bedroom count.
func IsBedroomOption(n int) bool {
	for _, b := range bedroomOptions {
		if b == n {
			return true
		}
	}
	return false
}

func contains(items []string, value string) bool {
	for _, item := range items {
		if item == value {
			return true
		}
	}
	return false
}
