package models

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date format used on the wire and in rendered tables.
const DateLayout = "2006-01-02"

// Observation is one (timestamp, value) pair of a time series.
type Observation struct {
	Timestamp time.Time
	Value     float64
}

// RegressionModel is a trend line fitted over index positions 0..n-1.
type RegressionModel struct {
	Slope     float64
	Intercept float64
}

// At evaluates the fitted line at index position x.
func (m RegressionModel) At(x int) float64 {
	return m.Slope*float64(x) + m.Intercept
}

// ForecastPoint is a single chart point. Future points have no Actual value.
type ForecastPoint struct {
	Timestamp time.Time
	Actual    *float64
	Predicted float64
}

// IsFuture reports whether the point was extrapolated past the last observation.
func (p ForecastPoint) IsFuture() bool { return p.Actual == nil }

// ForecastResult holds the historical fit followed by the extrapolated tail.
type ForecastResult struct {
	Combined  []ForecastPoint
	Slope     float64
	Intercept float64
}

type forecastPointJSON struct {
	Date      string   `json:"date"`
	Actual    *float64 `json:"actual,omitempty"`
	Predicted float64  `json:"predicted"`
}

func (p ForecastPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(forecastPointJSON{
		Date:      p.Timestamp.Format(DateLayout),
		Actual:    p.Actual,
		Predicted: p.Predicted,
	})
}

func (p *ForecastPoint) UnmarshalJSON(b []byte) error {
	var raw forecastPointJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	ts, err := time.Parse(DateLayout, raw.Date)
	if err != nil {
		return err
	}
	p.Timestamp = ts
	p.Actual = raw.Actual
	p.Predicted = raw.Predicted
	return nil
}

type forecastResultJSON struct {
	Combined  []ForecastPoint `json:"combined"`
	Slope     float64         `json:"slope"`
	Intercept float64         `json:"intercept"`
}

func (r ForecastResult) MarshalJSON() ([]byte, error) {
	combined := r.Combined
	if combined == nil {
		combined = []ForecastPoint{}
	}
	return json.Marshal(forecastResultJSON{Combined: combined, Slope: r.Slope, Intercept: r.Intercept})
}

func (r *ForecastResult) UnmarshalJSON(b []byte) error {
	var raw forecastResultJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	r.Combined = raw.Combined
	r.Slope = raw.Slope
	r.Intercept = raw.Intercept
	return nil
}

type observationJSON struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func (o Observation) MarshalJSON() ([]byte, error) {
	return json.Marshal(observationJSON{Date: o.Timestamp.Format(DateLayout), Value: o.Value})
}
