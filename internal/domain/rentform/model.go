package rentform

import (
	"time"

	"github.com/yanqian/rent-estimator/internal/domain/market"
	"github.com/yanqian/rent-estimator/internal/domain/property"
)

// Error codes surfaced by the form and its predictor.
const (
	CodeServiceRejection = "service_rejection"
	CodeTransportFailure = "transport_failure"
	CodeInvalidInput     = "invalid_input"
	CodeInFlight         = "submission_in_flight"
	CodeViewNotFound     = "view_not_found"
)

// GenericFailureMessage is shown when the prediction service could not be reached.
const GenericFailureMessage = "Failed to fetch prediction."

// NoticeKind distinguishes notification sources.
type NoticeKind string

const (
	// NoticeRejection means the service answered with a non-success status.
	NoticeRejection NoticeKind = "rejection"
	// NoticeFailure means the request never produced a usable answer.
	NoticeFailure NoticeKind = "failure"
	// NoticeInvalid means the submitted fields were rejected locally.
	NoticeInvalid NoticeKind = "invalid"
)

// Notice is a blocking notification presented once to the user.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Prediction is a successful answer from the prediction service.
type Prediction struct {
	PredictedPrice *float64
	Currency       string
	MarketData     []market.Bucket
}

// Snapshot is a point-in-time copy of a mounted form.
type Snapshot struct {
	ID             string             `json:"id"`
	Version        uint64             `json:"version"`
	State          property.FormState `json:"state"`
	PredictedPrice *float64           `json:"predicted_price,omitempty"`
	Currency       string             `json:"currency,omitempty"`
	MarketData     []market.Bucket    `json:"market_data"`
	Busy           bool               `json:"busy"`
	Notice         *Notice            `json:"notice,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// HasResult reports whether an estimate is available.
func (s Snapshot) HasResult() bool {
	return s.PredictedPrice != nil
}

// ShowChart reports whether the market chart should be mounted.
func (s Snapshot) ShowChart() bool {
	return s.HasResult() && len(s.MarketData) > 0
}

// Config wires runtime behaviour for mounted forms.
type Config struct {
	// PreserveOnFailure restores the previous estimate after a failed submission.
	PreserveOnFailure bool
	// IdleTTL is how long an untouched view stays mounted.
	IdleTTL time.Duration
	// Currency is used when the service omits one.
	Currency string
}
