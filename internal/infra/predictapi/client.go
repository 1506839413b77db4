package predictapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/rent-estimator/internal/domain/market"
	"github.com/yanqian/rent-estimator/internal/domain/property"
	"github.com/yanqian/rent-estimator/internal/domain/rentform"
	apperrors "github.com/yanqian/rent-estimator/pkg/errors"
)

const (
	defaultEndpoint = "http://127.0.0.1:5328/api/predict"
	maxBodyBytes    = 1 << 20
	statusSuccess   = "success"
)

// Client calls the remote rent prediction endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a prediction client. A zero timeout leaves requests bounded
// only by their context.
func NewClient(endpoint string, timeout time.Duration, logger *slog.Logger) *Client {
	target := strings.TrimSpace(endpoint)
	if target == "" {
		target = defaultEndpoint
	}
	return &Client{
		endpoint:   target,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "predictapi.client"),
	}
}

// Predict posts the attributes and decodes the estimate.
func (c *Client) Predict(ctx context.Context, state property.FormState) (rentform.Prediction, error) {
	payload, err := json.Marshal(state)
	if err != nil {
		return rentform.Prediction{}, transport("encode prediction request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return rentform.Prediction{}, transport("build prediction request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return rentform.Prediction{}, transport("prediction request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return rentform.Prediction{}, transport("prediction request error", fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return rentform.Prediction{}, transport("read prediction response", err)
	}

	var raw apiResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return rentform.Prediction{}, transport("decode prediction response", err)
	}

	if raw.Status != statusSuccess {
		msg := strings.TrimSpace(raw.Message)
		if msg == "" {
			msg = "prediction service returned status " + fmt.Sprintf("%q", raw.Status)
		}
		return rentform.Prediction{}, apperrors.Wrap(rentform.CodeServiceRejection, msg, nil)
	}

	buckets, dropped := sanitizeBuckets(raw.MarketData)
	if dropped > 0 {
		c.logger.Warn("dropped malformed market buckets", "dropped", dropped, "kept", len(buckets))
	}

	return rentform.Prediction{
		PredictedPrice: raw.PredictedPrice,
		Currency:       strings.TrimSpace(raw.Currency),
		MarketData:     buckets,
	}, nil
}

type apiResponse struct {
	Status         string      `json:"status"`
	PredictedPrice *float64    `json:"predicted_price"`
	Currency       string      `json:"currency"`
	MarketData     []apiBucket `json:"market_data"`
	Message        string      `json:"message"`
}

// maxCount bounds a bucket count so it converts to int on every platform.
const maxCount = math.MaxInt32

// apiBucket uses pointers so missing fields can be told apart from zeros.
type apiBucket struct {
	RangeStart *float64 `json:"range_start"`
	RangeEnd   *float64 `json:"range_end"`
	Count      *float64 `json:"count"`
	Label      *string  `json:"label"`
}

// sanitizeBuckets keeps only well formed buckets, in their original order.
// A nil input stays nil so callers can tell "absent" from "empty".
func sanitizeBuckets(items []apiBucket) ([]market.Bucket, int) {
	if items == nil {
		return nil, 0
	}
	out := make([]market.Bucket, 0, len(items))
	dropped := 0
	for _, item := range items {
		b, ok := item.bucket()
		if !ok {
			dropped++
			continue
		}
		out = append(out, b)
	}
	return out, dropped
}

func (b apiBucket) bucket() (market.Bucket, bool) {
	if b.RangeStart == nil || b.RangeEnd == nil || b.Count == nil || b.Label == nil {
		return market.Bucket{}, false
	}
	start, end, count := *b.RangeStart, *b.RangeEnd, *b.Count
	if !finite(start) || !finite(end) || !finite(count) {
		return market.Bucket{}, false
	}
	if end <= start || count < 0 || count > maxCount || count != math.Trunc(count) {
		return market.Bucket{}, false
	}
	label := strings.TrimSpace(*b.Label)
	if label == "" {
		return market.Bucket{}, false
	}
	return market.Bucket{
		RangeStart: start,
		RangeEnd:   end,
		Count:      int(count),
		Label:      label,
	}, true
}

func transport(message string, err error) error {
	return apperrors.Wrap(rentform.CodeTransportFailure, message, err)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

var _ rentform.Predictor = (*Client)(nil)
