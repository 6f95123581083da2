package service

import "SignalLab/internal/domain/models"

// Forecaster fits a trend line to an observation series and extrapolates it.
type Forecaster interface {
	Fit(values []float64) models.RegressionModel
	Forecast(observations []models.Observation, horizon int) models.ForecastResult
}

// SentimentAnalyzer scores independent lines of text.
type SentimentAnalyzer interface {
	Analyze(raw string) []models.SentimentResult
	// Fingerprint identifies the word list; results scored with different
	// lists must not share cache entries.
	Fingerprint() string
}
