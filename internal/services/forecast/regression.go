package forecast

import "SignalLab/internal/domain/models"

// Fit computes an ordinary least squares line y = slope*x + intercept with x_i = i.
// A zero denominator yields slope 0 and an empty series yields intercept 0, so the
// function never divides by zero.
func Fit(values []float64) models.RegressionModel {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	var m models.RegressionModel
	denom := n*sumX2 - sumX*sumX
	if denom != 0 {
		m.Slope = (n*sumXY - sumX*sumY) / denom
	}
	if n != 0 {
		m.Intercept = (sumY - m.Slope*sumX) / n
	}
	return m
}
