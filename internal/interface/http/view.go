package http

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"

	"github.com/yanqian/rent-estimator/internal/domain/market"
	"github.com/yanqian/rent-estimator/internal/domain/marketchart"
	"github.com/yanqian/rent-estimator/internal/domain/property"
	"github.com/yanqian/rent-estimator/internal/domain/rentform"
)

const (
	submitLabel      = "Predict Fair Rent"
	busySubmitLabel  = "Analyzing Market..."
	emptyPriceText   = "---"
	busyPlaceholder  = "Crunching numbers..."
	idlePlaceholder  = "Market data will appear here"
	analysisTemplate = "Based on AI analysis of similar properties in "
)

// PageSettings carries the static presentation values of the page shell.
type PageSettings struct {
	Title    string
	Currency string
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type pageView struct {
	Title         string
	ViewID        string
	Locations     []option
	Bedrooms      []option
	Furnishings   []option
	Bathrooms     string
	SizeSqft      string
	MinBathrooms  int
	MaxBathrooms  int
	Busy          bool
	ButtonLabel   string
	HasResult     bool
	PriceText     string
	AnalysisText  string
	Location      string
	ShowChart     bool
	Chart         marketchart.Chart
	Placeholder   string
	Notice        *rentform.Notice
	NoticeMessage string
}

// displayInfo is the rendered state exposed on the JSON surface.
type displayInfo struct {
	PriceText      string   `json:"priceText"`
	ButtonLabel    string   `json:"buttonLabel"`
	SubmitDisabled bool     `json:"submitDisabled"`
	BedroomLabel   string   `json:"bedroomLabel"`
	Highlighted    []string `json:"highlighted"`
	MaxBucket      string   `json:"maxBucket,omitempty"`
}

type viewResponse struct {
	View    rentform.Snapshot `json:"view"`
	Display displayInfo       `json:"display"`
}

func buildPageView(settings PageSettings, snap rentform.Snapshot) pageView {
	state := snap.State
	v := pageView{
		Title:        settings.Title,
		ViewID:       snap.ID,
		Bathrooms:    formatNumber(state.Bathrooms),
		SizeSqft:     formatNumber(state.SizeSqft),
		MinBathrooms: property.MinBathrooms,
		MaxBathrooms: property.MaxBathrooms,
		Busy:         snap.Busy,
		ButtonLabel:  buttonLabel(snap.Busy),
		HasResult:    snap.HasResult(),
		PriceText:    priceText(settings, snap),
		AnalysisText: analysisTemplate,
		Location:     state.Location,
		ShowChart:    snap.ShowChart(),
		Placeholder:  idlePlaceholder,
		Notice:       snap.Notice,
	}
	if snap.Busy {
		v.Placeholder = busyPlaceholder
	}
	if snap.Notice != nil {
		v.NoticeMessage = snap.Notice.Message
	}
	for _, loc := range property.Locations() {
		v.Locations = append(v.Locations, option{Value: loc, Label: loc, Selected: loc == state.Location})
	}
	for _, n := range property.BedroomOptions() {
		v.Bedrooms = append(v.Bedrooms, option{Value: strconv.Itoa(n), Label: property.BedroomLabel(n), Selected: n == state.Bedrooms})
	}
	for _, f := range property.Furnishings() {
		v.Furnishings = append(v.Furnishings, option{Value: f, Label: f, Selected: f == state.Furnishing})
	}
	if v.ShowChart {
		v.Chart = marketchart.Build(snap.MarketData, *snap.PredictedPrice, state.Location)
	}
	return v
}

func buildViewResponse(settings PageSettings, snap rentform.Snapshot) viewResponse {
	info := displayInfo{
		PriceText:      priceText(settings, snap),
		ButtonLabel:    buttonLabel(snap.Busy),
		SubmitDisabled: snap.Busy,
		BedroomLabel:   property.BedroomLabel(snap.State.Bedrooms),
		Highlighted:    []string{},
	}
	if snap.ShowChart() {
		chart := marketchart.Build(snap.MarketData, *snap.PredictedPrice, snap.State.Location)
		if labels := chart.EmphasizedLabels(); labels != nil {
			info.Highlighted = labels
		}
		if chart.Marker != nil {
			info.MaxBucket = chart.Marker.Bucket
		}
	}
	if snap.MarketData == nil {
		snap.MarketData = []market.Bucket{}
	}
	return viewResponse{View: snap, Display: info}
}

func buttonLabel(busy bool) string {
	if busy {
		return busySubmitLabel
	}
	return submitLabel
}

func priceText(settings PageSettings, snap rentform.Snapshot) string {
	if snap.PredictedPrice == nil {
		return emptyPriceText
	}
	currency := snap.Currency
	if currency == "" {
		currency = settings.Currency
	}
	return currency + " " + humanize.Commaf(math.Round(*snap.PredictedPrice*100)/100)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
