package ingest

import (
	"sync"

	"SignalLab/internal/domain/models"
	"SignalLab/pkg/util"
)

const (
	MinHorizon     = 7
	MaxHorizon     = 60
	DefaultHorizon = 14
)

// Dataset is the current observation set and horizon served to clients.
type Dataset struct {
	mu      sync.RWMutex
	obs     []models.Observation
	horizon int
	minH    int
	maxH    int
}

// DatasetOption configures Dataset.
type DatasetOption func(*Dataset)

// WithHorizonRange overrides the accepted horizon range.
func WithHorizonRange(min, max int) DatasetOption {
	return func(d *Dataset) {
		if min >= 0 && max >= min {
			d.minH, d.maxH = min, max
		}
	}
}

// WithInitialHorizon sets the starting horizon (clamped to the range).
func WithInitialHorizon(h int) DatasetOption {
	return func(d *Dataset) { d.horizon = h }
}

// NewDataset starts with the sample series loaded.
func NewDataset(opts ...DatasetOption) *Dataset {
	d := &Dataset{
		horizon: DefaultHorizon,
		minH:    MinHorizon,
		maxH:    MaxHorizon,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.horizon = util.Clamp(d.horizon, d.minH, d.maxH)
	d.obs = SampleObservations()
	return d
}

// Snapshot returns a copy of the current observations.
func (d *Dataset) Snapshot() []models.Observation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Observation, len(d.obs))
	copy(out, d.obs)
	return out
}

// Len returns the number of loaded observations.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.obs)
}

// Replace swaps in obs. An empty batch is a no-op and the previous set is kept.
func (d *Dataset) Replace(obs []models.Observation) bool {
	if len(obs) == 0 {
		return false
	}
	cp := make([]models.Observation, len(obs))
	copy(cp, obs)
	d.mu.Lock()
	d.obs = cp
	d.mu.Unlock()
	return true
}

// LoadSample restores the built-in sample series.
func (d *Dataset) LoadSample() {
	d.Replace(SampleObservations())
}

// Clear empties the dataset explicitly.
func (d *Dataset) Clear() {
	d.mu.Lock()
	d.obs = nil
	d.mu.Unlock()
}

func (d *Dataset) Horizon() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.horizon
}

// SetHorizon stores h clamped to the configured range and returns the stored value.
func (d *Dataset) SetHorizon(h int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.horizon = util.Clamp(h, d.minH, d.maxH)
	return d.horizon
}
