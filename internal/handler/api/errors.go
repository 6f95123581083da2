package api

import (
	"errors"

	"SignalLab/internal/services/ingest"
	"SignalLab/internal/usecase"
	xhttp "SignalLab/pkg/http"
)

// toAppError maps usecase failures onto the HTTP error taxonomy.
func toAppError(err error) *xhttp.AppError {
	var tooMany *usecase.TooManyLinesError
	switch {
	case errors.As(err, &tooMany):
		return xhttp.BadRequestError(err.Error()).
			WithField("text").
			WithParam("max", tooMany.Max).
			WithParam("lines", tooMany.Lines)
	case errors.Is(err, usecase.ErrInvalidObservation):
		return xhttp.BadRequestError(err.Error()).WithField("observations").WithError(err)
	case errors.Is(err, ingest.ErrNoHeader), errors.Is(err, ingest.ErrMissingColumn):
		return xhttp.BadRequestError(err.Error()).WithField("file").WithError(err)
	case errors.Is(err, usecase.ErrJobsDisabled):
		return xhttp.UnavailableError("sentiment jobs are not configured").WithError(err)
	case errors.Is(err, usecase.ErrJobNotFound):
		return xhttp.NotFoundError(err.Error()).WithError(err)
	case errors.Is(err, usecase.ErrSourceDisabled):
		return xhttp.UnavailableError("observation source is not configured").WithError(err)
	default:
		return xhttp.InternalError("analysis failed").WithError(err)
	}
}
