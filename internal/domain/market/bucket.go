package market

// Bucket is one price range of the comparable-listing distribution.
type Bucket struct {
	RangeStart float64 `json:"range_start"`
	RangeEnd   float64 `json:"range_end"`
	Count      int     `json:"count"`
	Label      string  `json:"label"`
}

// Contains reports whether price falls inside [RangeStart, RangeEnd).
func (b Bucket) Contains(price float64) bool {
	return price >= b.RangeStart && price < b.RangeEnd
}

// Clone copies a bucket sequence so callers cannot alias stored state.
func Clone(buckets []Bucket) []Bucket {
	if buckets == nil {
		return nil
	}
	return append([]Bucket(nil), buckets...)
}
