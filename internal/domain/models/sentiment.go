package models

import "time"

// Label is the polarity class assigned to a line of text.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

// SentimentResult is the score of one non-empty input line.
type SentimentResult struct {
	Text        string  `json:"text"`
	Score       int     `json:"score"`
	Comparative float64 `json:"comparative"`
	Label       Label   `json:"label"`
}

// SentimentJob is a batch request consumed from the job topic.
type SentimentJob struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// SentimentJobResult is published back for every processed SentimentJob.
type SentimentJobResult struct {
	ID         string            `json:"id"`
	Results    []SentimentResult `json:"results"`
	AnalyzedAt time.Time         `json:"analyzed_at"`
}

// JobState is the lifecycle state of a queued sentiment job.
type JobState string

const (
	JobQueued JobState = "queued"
	JobDone   JobState = "done"
	JobFailed JobState = "failed"
)

// JobStatus is what a client polls for after submitting a job.
type JobStatus struct {
	ID         string            `json:"id"`
	State      JobState          `json:"state"`
	Results    []SentimentResult `json:"results,omitempty"`
	AnalyzedAt *time.Time        `json:"analyzed_at,omitempty"`
	Error      string            `json:"error,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
