package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"SignalLab/internal/domain/models"
	smetrics "SignalLab/internal/service/metrics"
	"SignalLab/internal/usecase"
	xhttp "SignalLab/pkg/http"
	xlogger "SignalLab/pkg/logger"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = wsPongWait * 9 / 10
	wsMaxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced by the HTTP middleware
	},
}

// SentimentEchoHandler scores text over HTTP and over a websocket stream.
// jobs may be nil, in which case the job endpoints answer 503.
type SentimentEchoHandler struct {
	logger *xlogger.Logger
	uc     *usecase.SentimentUseCase
	jobs   *usecase.SentimentJobs
}

func NewSentimentEchoHandler(logger *xlogger.Logger, uc *usecase.SentimentUseCase, jobs *usecase.SentimentJobs) *SentimentEchoHandler {
	smetrics.Register()
	return &SentimentEchoHandler{logger: logger.With("sentiment-api"), uc: uc, jobs: jobs}
}

func (h *SentimentEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/sentiment", h.Analyze)
	g.GET("/sentiment/stream", h.Stream)
	g.POST("/sentiment/jobs", h.SubmitJob)
	g.GET("/sentiment/jobs/:id", h.JobStatus)
}

func (h *SentimentEchoHandler) Analyze(c echo.Context) error {
	defer smetrics.ObserveEndpoint("sentiment", time.Now())

	req := &models.SentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.uc.Analyze(c.Request().Context(), req.Text)
	if err != nil {
		smetrics.EndpointError("sentiment")
		h.logger.Warn("sentiment rejected", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// SubmitJob queues the text for background scoring and answers 202.
func (h *SentimentEchoHandler) SubmitJob(c echo.Context) error {
	defer smetrics.ObserveEndpoint("sentiment_job_submit", time.Now())

	req := &models.SentimentRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	st, err := h.jobs.Submit(c.Request().Context(), req.Text)
	if err != nil {
		smetrics.EndpointError("sentiment_job_submit")
		h.logger.Warn("sentiment job rejected", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.DataResponse(c, http.StatusAccepted, st)
}

func (h *SentimentEchoHandler) JobStatus(c echo.Context) error {
	defer smetrics.ObserveEndpoint("sentiment_job_status", time.Now())

	st, err := h.jobs.Status(c.Request().Context(), c.Param("id"))
	if err != nil {
		smetrics.EndpointError("sentiment_job_status")
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

// streamReply is written once per received text frame.
type streamReply struct {
	Results []models.SentimentResult `json:"results"`
	Error   string                   `json:"error,omitempty"`
}

// Stream upgrades to a websocket; each text frame is analyzed and answered in order.
func (h *SentimentEchoHandler) Stream(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx := c.Request().Context()
	done := make(chan struct{})
	defer close(done)

	// WriteControl may run concurrently with the WriteJSON calls below.
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("websocket read", xlogger.Error(err))
			}
			return nil
		}
		if mt != websocket.TextMessage {
			continue
		}

		start := time.Now()
		var reply streamReply
		res, err := h.uc.Analyze(ctx, string(data))
		if err != nil {
			smetrics.EndpointError("sentiment_stream")
			reply.Error = err.Error()
		} else {
			reply.Results = res
			if reply.Results == nil {
				reply.Results = []models.SentimentResult{}
			}
		}
		smetrics.ObserveEndpoint("sentiment_stream", start)

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warn("websocket write", xlogger.Error(err))
			return nil
		}
	}
}
