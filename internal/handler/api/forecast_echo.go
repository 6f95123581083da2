package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"SignalLab/internal/domain/models"
	smetrics "SignalLab/internal/service/metrics"
	"SignalLab/internal/usecase"
	xhttp "SignalLab/pkg/http"
	xlogger "SignalLab/pkg/logger"
	xutil "SignalLab/pkg/util"
)

// MaxUploadBytes bounds CSV uploads.
const MaxUploadBytes = 10 << 20

// ForecastEchoHandler serves trend forecasts and the dataset they run over.
type ForecastEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.ForecastUseCase
}

func NewForecastEchoHandler(logger *xlogger.Logger, uc *usecase.ForecastUseCase) *ForecastEchoHandler {
	smetrics.Register()
	return &ForecastEchoHandler{logger: logger.With("forecast-api"), uc: uc}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/forecast", h.Forecast)
	g.GET("/forecast", h.ForecastDataset)
	g.PUT("/forecast/horizon", h.SetHorizon)

	g.GET("/dataset", h.Dataset)
	g.POST("/dataset/csv", h.UploadCSV)
	g.POST("/dataset/sample", h.LoadSample)
	g.DELETE("/dataset", h.Clear)
	g.GET("/dataset/source", h.LoadFromSource)
}

// Forecast fits the posted series.
func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	defer smetrics.ObserveEndpoint("forecast", time.Now())

	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	obs, err := usecase.ObservationsFromInput(req.Observations)
	if err != nil {
		return h.fail(c, "forecast", err)
	}
	return xhttp.SuccessResponse(c, h.uc.Forecast(c.Request().Context(), obs, req.Horizon))
}

// ForecastDataset forecasts the current dataset.
func (h *ForecastEchoHandler) ForecastDataset(c echo.Context) error {
	defer smetrics.ObserveEndpoint("forecast_dataset", time.Now())

	req := &models.DatasetForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// absent falls back to the dataset horizon; oversized values are clamped
	var horizon *int
	if v, ok := xutil.ParseClampedInt(req.Horizon, 0, models.MaxRequestHorizon); ok {
		horizon = &v
	}
	return xhttp.SuccessResponse(c, h.uc.ForecastDataset(c.Request().Context(), horizon))
}

func (h *ForecastEchoHandler) SetHorizon(c echo.Context) error {
	req := &models.HorizonRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, map[string]int{"horizon": h.uc.SetHorizon(req.Horizon)})
}

func (h *ForecastEchoHandler) Dataset(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.Dataset())
}

// UploadCSV accepts either a multipart "file" field or a raw text/csv body.
func (h *ForecastEchoHandler) UploadCSV(c echo.Context) error {
	defer smetrics.ObserveEndpoint("dataset_csv", time.Now())

	body, closeFn, err := csvBody(c)
	if err != nil {
		smetrics.EndpointError("dataset_csv")
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithField("file"))
	}
	defer closeFn()

	out, err := h.uc.IngestCSV(c.Request().Context(), io.LimitReader(body, MaxUploadBytes))
	if err != nil {
		return h.fail(c, "dataset_csv", err)
	}
	return xhttp.SuccessResponse(c, out)
}

func csvBody(c echo.Context) (io.Reader, func(), error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		return c.Request().Body, func() {}, nil
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("multipart field \"file\" is required")
	}
	if fh.Size > MaxUploadBytes {
		return nil, nil, fmt.Errorf("file exceeds %d bytes", MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open upload: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func (h *ForecastEchoHandler) LoadSample(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.uc.LoadSample())
}

func (h *ForecastEchoHandler) Clear(c echo.Context) error {
	h.uc.ClearDataset()
	return xhttp.NoContentResponse(c)
}

// LoadFromSource replaces the dataset with stored closes for a symbol.
func (h *ForecastEchoHandler) LoadFromSource(c echo.Context) error {
	defer smetrics.ObserveEndpoint("dataset_source", time.Now())

	req := &models.SourceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out, err := h.uc.LoadFromSource(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return h.fail(c, "dataset_source", err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *ForecastEchoHandler) fail(c echo.Context, endpoint string, err error) error {
	smetrics.EndpointError(endpoint)
	appErr := toAppError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Warn(endpoint+" rejected", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}
