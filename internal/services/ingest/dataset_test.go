package ingest

import (
	"testing"
	"time"

	"SignalLab/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestDatasetStartsWithSample(t *testing.T) {
	d := NewDataset()
	assert.Equal(t, 20, d.Len())
	assert.Equal(t, DefaultHorizon, d.Horizon())

	sample := d.Snapshot()
	assert.Equal(t, 182.1, sample[0].Value)
	assert.Equal(t, "2025-05-29", sample[19].Timestamp.Format(models.DateLayout))
}

func TestDatasetReplaceRetainsOnEmpty(t *testing.T) {
	d := NewDataset()
	before := d.Snapshot()

	assert.False(t, d.Replace(nil))
	assert.Equal(t, before, d.Snapshot())

	next := []models.Observation{{Timestamp: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Value: 5}}
	assert.True(t, d.Replace(next))
	assert.Equal(t, next, d.Snapshot())

	next[0].Value = 99
	assert.Equal(t, 5.0, d.Snapshot()[0].Value)
}

func TestDatasetClearAndSample(t *testing.T) {
	d := NewDataset()
	d.Clear()
	assert.Zero(t, d.Len())
	d.LoadSample()
	assert.Equal(t, 20, d.Len())
}

func TestDatasetSnapshotIsCopy(t *testing.T) {
	d := NewDataset()
	snap := d.Snapshot()
	snap[0].Value = -1
	assert.Equal(t, 182.1, d.Snapshot()[0].Value)
}

func TestDatasetHorizonClamp(t *testing.T) {
	d := NewDataset()
	assert.Equal(t, MinHorizon, d.SetHorizon(1))
	assert.Equal(t, MaxHorizon, d.SetHorizon(500))
	assert.Equal(t, 30, d.SetHorizon(30))

	custom := NewDataset(WithHorizonRange(1, 10), WithInitialHorizon(50))
	assert.Equal(t, 10, custom.Horizon())
}
