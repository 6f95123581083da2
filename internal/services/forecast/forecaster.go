package forecast

import (
	"SignalLab/internal/domain/models"
	domsvc "SignalLab/internal/domain/service"
)

// LinearForecaster extrapolates a least squares trend by whole calendar days.
type LinearForecaster struct{}

func NewLinearForecaster() *LinearForecaster { return &LinearForecaster{} }

func (LinearForecaster) Fit(values []float64) models.RegressionModel { return Fit(values) }

func (LinearForecaster) Forecast(observations []models.Observation, horizon int) models.ForecastResult {
	return Forecast(observations, horizon)
}

// Forecast fits the series on index positions and appends horizon future points,
// one calendar day apart, after the last observation. Weekends are not skipped.
// The input slice is never modified.
func Forecast(observations []models.Observation, horizon int) models.ForecastResult {
	if len(observations) == 0 {
		return models.ForecastResult{Combined: []models.ForecastPoint{}}
	}
	if horizon < 0 {
		horizon = 0
	}

	values := make([]float64, len(observations))
	for i, o := range observations {
		values[i] = o.Value
	}
	model := Fit(values)

	n := len(observations)
	combined := make([]models.ForecastPoint, 0, n+horizon)
	for i, o := range observations {
		actual := o.Value
		combined = append(combined, models.ForecastPoint{
			Timestamp: o.Timestamp,
			Actual:    &actual,
			Predicted: model.At(i),
		})
	}

	last := observations[n-1].Timestamp
	for h := 1; h <= horizon; h++ {
		combined = append(combined, models.ForecastPoint{
			Timestamp: last.AddDate(0, 0, h),
			Predicted: model.At(n - 1 + h),
		})
	}

	return models.ForecastResult{
		Combined:  combined,
		Slope:     model.Slope,
		Intercept: model.Intercept,
	}
}

var _ domsvc.Forecaster = (*LinearForecaster)(nil)
