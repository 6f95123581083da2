package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *capturePublisher) entries() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf).With("forecast")

	log.Error("fit failed",
		String("symbol", "AAPL"),
		Int("points", 20),
		Float64("slope", 0.5),
		Bool("cached", false),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "fit failed", line["message"])
	assert.Equal(t, "forecast", line["component"])
	assert.Equal(t, "AAPL", line["symbol"])
	assert.EqualValues(t, 20, line["points"])
	assert.EqualValues(t, 0.5, line["slope"])
	assert.EqualValues(t, 1500, line["took"])
	assert.Equal(t, "boom", line["error"])
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := &capturePublisher{}
	log := Nop()
	log.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "signallab.logs",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		log.Error("cache write failed", String("key", "k1"))
	}
	log.Error("cache write failed", String("key", "k2"))
	log.Info("not collected")
	log.RemoveCollector()

	entries := pub.entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "signallab.logs", pub.topic)

	counts := map[interface{}]int{}
	for _, e := range entries {
		counts[e.Fields["key"]] = e.Count
		assert.Equal(t, "error", e.Level)
	}
	assert.Equal(t, 3, counts["k1"])
	assert.Equal(t, 1, counts["k2"])
}

func TestCollectorFlushesOnThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 2,
		Topic:          "logs",
		Publisher:      pub,
	})
	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")
	c.Close()

	assert.Len(t, pub.entries(), 2)
	pub.mu.Lock()
	assert.Len(t, pub.batches, 1)
	pub.mu.Unlock()
}

func TestCollectorSeesChildLoggersCreatedEarlier(t *testing.T) {
	pub := &capturePublisher{}
	root := Nop()
	child := root.With("forecast-api")

	root.AddCollector(&CollectionConfig{TimeInterval: time.Hour, Topic: "logs", Publisher: pub})
	child.Error("usecase error")
	root.RemoveCollector()
	child.Error("after removal")

	entries := pub.entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "usecase error", entries[0].Message)
}
