package models

// Requests for analysis HTTP endpoints. Defined in domain for consistency and reuse.

// MaxRequestHorizon bounds caller-chosen horizons; it matches the lte rule on ForecastRequest.
const MaxRequestHorizon = 3650

type ObservationInput struct {
	Date  string   `json:"date" validate:"required"`
	Value *float64 `json:"value" validate:"required"`
}

type ForecastRequest struct {
	Observations []ObservationInput `json:"observations" validate:"dive"`
	Horizon      *int               `json:"horizon" validate:"omitempty,gte=0,lte=3650"`
}

type DatasetForecastRequest struct {
	Horizon string `query:"horizon" json:"horizon" validate:"omitempty,number"`
}

type HorizonRequest struct {
	Horizon int `json:"horizon" validate:"gte=7,lte=60"`
}

type SourceRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"120" validate:"gte=1,lte=5000"`
}

type SentimentRequest struct {
	Text string `json:"text" validate:"required"`
}
