package ingest

import (
	"time"

	"SignalLab/internal/domain/models"
)

var sampleCloses = []struct {
	date  string
	close float64
}{
	{"2025-05-01", 182.1}, {"2025-05-02", 183.5}, {"2025-05-05", 181.9}, {"2025-05-06", 184.2},
	{"2025-05-07", 186.0}, {"2025-05-08", 185.2}, {"2025-05-09", 187.4}, {"2025-05-12", 188.1},
	{"2025-05-13", 189.0}, {"2025-05-14", 188.6}, {"2025-05-15", 190.2}, {"2025-05-16", 191.1},
	{"2025-05-19", 192.4}, {"2025-05-20", 193.0}, {"2025-05-21", 192.2}, {"2025-05-22", 193.8},
	{"2025-05-23", 194.5}, {"2025-05-27", 195.3}, {"2025-05-28", 196.1}, {"2025-05-29", 196.9},
}

// SampleObservations returns twenty trading days of closing prices.
func SampleObservations() []models.Observation {
	out := make([]models.Observation, len(sampleCloses))
	for i, s := range sampleCloses {
		ts, _ := time.Parse(models.DateLayout, s.date)
		out[i] = models.Observation{Timestamp: ts, Value: s.close}
	}
	return out
}
