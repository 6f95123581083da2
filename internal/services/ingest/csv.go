// Package ingest turns tabular price exports into validated observation series.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"SignalLab/internal/domain/models"
	"SignalLab/pkg/util"
)

var (
	ErrNoHeader      = errors.New("ingest: missing header row")
	ErrMissingColumn = errors.New("ingest: no usable date/value columns")
)

// Column names are matched case-insensitively, in priority order.
var (
	dateColumns  = []string{"date", "timestamp"}
	valueColumns = []string{"close", "price", "value"}
)

// Report summarizes a CSV ingestion.
type Report struct {
	Rows     int `json:"rows"`
	Accepted int `json:"accepted"`
	Skipped  int `json:"skipped"`
}

// ParseCSV reads a header row followed by data rows. Rows without a parseable
// date or a finite value are skipped and counted; they never abort the read.
func ParseCSV(r io.Reader) ([]models.Observation, Report, error) {
	var rep Report

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, rep, ErrNoHeader
		}
		return nil, rep, fmt.Errorf("read header: %w", err)
	}
	dateIdx := findColumn(header, dateColumns)
	valueIdx := findColumn(header, valueColumns)
	if dateIdx < 0 || valueIdx < 0 {
		return nil, rep, fmt.Errorf("%w: header %v", ErrMissingColumn, header)
	}

	out := make([]models.Observation, 0, 256)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rep.Rows++
				rep.Skipped++
				continue
			}
			return nil, rep, fmt.Errorf("read row: %w", err)
		}
		if isBlank(rec) {
			continue
		}
		rep.Rows++

		obs, ok := parseRow(rec, dateIdx, valueIdx)
		if !ok {
			rep.Skipped++
			continue
		}
		out = append(out, obs)
		rep.Accepted++
	}
	return out, rep, nil
}

func parseRow(rec []string, dateIdx, valueIdx int) (models.Observation, bool) {
	if dateIdx >= len(rec) || valueIdx >= len(rec) {
		return models.Observation{}, false
	}
	ts, ok := util.ParseDate(rec[dateIdx])
	if !ok {
		return models.Observation{}, false
	}
	v, ok := util.ParseFinite(rec[valueIdx])
	if !ok {
		return models.Observation{}, false
	}
	return models.Observation{Timestamp: ts, Value: v}, true
}

func findColumn(header []string, candidates []string) int {
	for _, want := range candidates {
		for i, h := range header {
			h = strings.TrimPrefix(h, "\ufeff")
			if strings.EqualFold(strings.TrimSpace(h), want) {
				return i
			}
		}
	}
	return -1
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
