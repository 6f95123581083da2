package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalLab/internal/domain/models"
	"SignalLab/internal/repository"
	"SignalLab/internal/services/forecast"
	"SignalLab/internal/services/ingest"
	"SignalLab/internal/services/sentiment"
	"SignalLab/internal/usecase"
	xhttp "SignalLab/pkg/http"
	xlogger "SignalLab/pkg/logger"
	"SignalLab/pkg/queue"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type forecastBody struct {
	Combined []struct {
		Date      string   `json:"date"`
		Actual    *float64 `json:"actual"`
		Predicted float64  `json:"predicted"`
	} `json:"combined"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

type stubSource struct{ obs []models.Observation }

func (s stubSource) LatestObservations(context.Context, string, int) ([]models.Observation, error) {
	return s.obs, nil
}

func (stubSource) Health(context.Context) error { return nil }

func newSentimentUC() *usecase.SentimentUseCase {
	return usecase.NewSentimentUseCase(sentiment.NewScorer(sentiment.DefaultLexicon()), usecase.WithMaxLines(3))
}

func newServer(t *testing.T, fopts ...usecase.ForecastOption) *xhttp.Server {
	t.Helper()
	return newServerWithJobs(t, newSentimentUC(), nil, fopts...)
}

func newServerWithJobs(t *testing.T, suc *usecase.SentimentUseCase, jobs *usecase.SentimentJobs, fopts ...usecase.ForecastOption) *xhttp.Server {
	t.Helper()
	log := xlogger.Nop()
	fuc := usecase.NewForecastUseCase(forecast.NewLinearForecaster(), ingest.NewDataset(), fopts...)
	return xhttp.NewServer(xhttp.Handlers{
		NewForecastEchoHandler(log, fuc),
		NewSentimentEchoHandler(log, suc, jobs),
	}, xhttp.WithMetrics("", nil, nil))
}

func call(t *testing.T, s *xhttp.Server, method, path, contentType string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func callJSON(t *testing.T, s *xhttp.Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	return call(t, s, method, path, echo.MIMEApplicationJSON, []byte(body))
}

func decodeForecast(t *testing.T, env envelope) forecastBody {
	t.Helper()
	var fb forecastBody
	require.NoError(t, json.Unmarshal(env.Data, &fb))
	return fb
}

func TestPostForecast(t *testing.T) {
	s := newServer(t)

	rec, env := callJSON(t, s, http.MethodPost, "/api/forecast", `{
		"observations": [
			{"date":"2025-05-01","value":1},
			{"date":"2025-05-02","value":2},
			{"date":"2025-05-03","value":3},
			{"date":"2025-05-04","value":4},
			{"date":"2025-05-05","value":5}
		],
		"horizon": 2
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fb := decodeForecast(t, env)
	assert.InDelta(t, 1.0, fb.Slope, 1e-9)
	assert.InDelta(t, 1.0, fb.Intercept, 1e-9)
	require.Len(t, fb.Combined, 7)
	assert.Equal(t, "2025-05-07", fb.Combined[6].Date)
	assert.Nil(t, fb.Combined[6].Actual)
	assert.InDelta(t, 7.0, fb.Combined[6].Predicted, 1e-9)
	require.NotNil(t, fb.Combined[0].Actual)
	assert.NotContains(t, rec.Body.String(), `"actual":null`)
}

func TestPostForecastDefaultsAndEmpty(t *testing.T) {
	s := newServer(t, usecase.WithDefaultHorizon(14))

	rec, env := callJSON(t, s, http.MethodPost, "/api/forecast", `{"observations":[]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	fb := decodeForecast(t, env)
	assert.Empty(t, fb.Combined)
	assert.Contains(t, string(env.Data), `"combined":[]`)

	rec, env = callJSON(t, s, http.MethodPost, "/api/forecast", `{"observations":[{"date":"2025-05-01","value":42.5}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	fb = decodeForecast(t, env)
	assert.Len(t, fb.Combined, 15)
	assert.InDelta(t, 42.5, fb.Combined[14].Predicted, 1e-9)
}

func TestPostForecastRejectsBadInput(t *testing.T) {
	s := newServer(t)

	rec, _ := callJSON(t, s, http.MethodPost, "/api/forecast", `{"observations":[{"date":"someday","value":1}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_BAD_REQUEST")

	rec, _ = callJSON(t, s, http.MethodPost, "/api/forecast", `{"observations":[{"date":"2025-05-01"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_REQUIRED")

	rec, _ = callJSON(t, s, http.MethodPost, "/api/forecast", `{"observations":[],"horizon":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_GTE")
}

func TestDatasetForecastAndHorizon(t *testing.T) {
	s := newServer(t)

	rec, env := call(t, s, http.MethodGet, "/api/forecast", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeForecast(t, env).Combined, 20+ingest.DefaultHorizon)

	rec, env = call(t, s, http.MethodGet, "/api/forecast?horizon=7", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeForecast(t, env).Combined, 27)

	for _, bad := range []string{"soon", "1.5", "-1"} {
		rec, _ = call(t, s, http.MethodGet, "/api/forecast?horizon="+bad, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	rec, env = call(t, s, http.MethodGet, "/api/forecast?horizon=99999999999999999999", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeForecast(t, env).Combined, 20+models.MaxRequestHorizon)

	rec, _ = callJSON(t, s, http.MethodPut, "/api/forecast/horizon", `{"horizon":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = callJSON(t, s, http.MethodPut, "/api/forecast/horizon", `{"horizon":21}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"horizon":21}`, string(env.Data))

	_, env = call(t, s, http.MethodGet, "/api/forecast", "", nil)
	assert.Len(t, decodeForecast(t, env).Combined, 41)
}

func TestUploadCSVRaw(t *testing.T) {
	s := newServer(t)

	csv := "Date,Close\n2025-01-01,10\n2025-01-02,11\nbad,row\n2025-01-03,12\n"
	rec, env := call(t, s, http.MethodPost, "/api/dataset/csv", "text/csv", []byte(csv))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"rows":4,"accepted":3,"skipped":1,"replaced":true,"size":3}`, string(env.Data))

	rec, env = call(t, s, http.MethodPost, "/api/dataset/csv", "text/csv", []byte("date,close\nnope,1\n"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rows":1,"accepted":0,"skipped":1,"replaced":false,"size":3}`, string(env.Data))

	rec, _ = call(t, s, http.MethodPost, "/api/dataset/csv", "text/csv", []byte("a,b\n1,2\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"file"`)
}

func TestUploadCSVMultipart(t *testing.T) {
	s := newServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "prices.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("timestamp,price\n2025-02-01,1\n2025-02-02,2\n"))
	require.NoError(t, mw.Close())

	rec, env := call(t, s, http.MethodPost, "/api/dataset/csv", mw.FormDataContentType(), buf.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"replaced":true`)

	var empty bytes.Buffer
	mw = multipart.NewWriter(&empty)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	rec, _ = call(t, s, http.MethodPost, "/api/dataset/csv", mw.FormDataContentType(), empty.Bytes())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetLifecycle(t *testing.T) {
	s := newServer(t)

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/dataset", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, env := call(t, s, http.MethodGet, "/api/dataset", "", nil)
	assert.JSONEq(t, `{"observations":[],"horizon":14}`, string(env.Data))

	_, env = call(t, s, http.MethodGet, "/api/forecast", "", nil)
	assert.Empty(t, decodeForecast(t, env).Combined)

	rec, env = call(t, s, http.MethodPost, "/api/dataset/sample", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `{"date":"2025-05-01","value":182.1}`)
}

func TestDatasetSource(t *testing.T) {
	s := newServer(t)
	rec, _ := call(t, s, http.MethodGet, "/api/dataset/source?symbol=AAPL", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_UNAVAILABLE")

	src := stubSource{obs: []models.Observation{{Timestamp: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Value: 9}}}
	s = newServer(t, usecase.WithObservationSource(src))

	rec, _ = call(t, s, http.MethodGet, "/api/dataset/source", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "symbol is required")

	rec, env := call(t, s, http.MethodGet, "/api/dataset/source?symbol=AAPL&limit=30", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"symbol":"AAPL","fetched":1,"replaced":true,"size":1}`, string(env.Data))
}

func TestPostSentiment(t *testing.T) {
	s := newServer(t)

	rec, env := callJSON(t, s, http.MethodPost, "/api/sentiment",
		`{"text":"I love this product!\nThis is okay.\nWorst experience ever."}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var res []models.SentimentResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Len(t, res, 3)
	assert.Equal(t, "I love this product!", res[0].Text)
	assert.Equal(t, 3, res[0].Score)
	assert.InDelta(t, 0.75, res[0].Comparative, 1e-12)
	assert.Equal(t, models.LabelNeutral, res[1].Label)
	assert.Equal(t, models.LabelNegative, res[2].Label)

	rec, _ = callJSON(t, s, http.MethodPost, "/api/sentiment", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = callJSON(t, s, http.MethodPost, "/api/sentiment", `{"text":"a\nb\nc\nd"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"max":3`)
}

func TestSentimentStream(t *testing.T) {
	s := newServer(t)
	ts := httptest.NewServer(s.Echo())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/sentiment/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("love it\n\nhate it")))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var reply struct {
		Results []models.SentimentResult `json:"results"`
		Error   string                   `json:"error"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	require.Len(t, reply.Results, 2)
	assert.Equal(t, models.LabelPositive, reply.Results[0].Label)
	assert.Equal(t, models.LabelNegative, reply.Results[1].Label)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("1\n2\n3\n4")))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Contains(t, reply.Error, "at most 3")
}

func TestSentimentJobsDisabled(t *testing.T) {
	s := newServer(t)
	rec, _ := callJSON(t, s, http.MethodPost, "/api/sentiment/jobs", `{"text":"good"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_UNAVAILABLE")

	rec, _ = call(t, s, http.MethodGet, "/api/sentiment/jobs/abc", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSentimentJobsOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cli.Close()

	suc := newSentimentUC()
	store := repository.NewRedisJobStore(cli, "test", time.Hour)
	q := queue.NewRedisQueue(nil, queue.QueueConfig{Workers: 1, PollInterval: 50 * time.Millisecond}, cli,
		queue.WithKeyPrefix("test:queue"),
		queue.WithDeadHandler(usecase.MarkDead(store, nil)))
	q.RegisterJob(usecase.NewSentimentJobHandler("sentiment", suc, store, nil))
	require.NoError(t, q.Start())
	defer q.Stop(context.Background())

	s := newServerWithJobs(t, suc, usecase.NewSentimentJobs(q, store, suc, "sentiment"))

	rec, env := callJSON(t, s, http.MethodPost, "/api/sentiment/jobs", `{"text":"I love this product!\nWorst experience ever."}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusAccepted, env.Status)

	var st models.JobStatus
	require.NoError(t, json.Unmarshal(env.Data, &st))
	require.NotEmpty(t, st.ID)
	assert.Equal(t, models.JobQueued, st.State)

	require.Eventually(t, func() bool {
		rec, env := call(t, s, http.MethodGet, "/api/sentiment/jobs/"+st.ID, "", nil)
		if rec.Code != http.StatusOK || json.Unmarshal(env.Data, &st) != nil {
			return false
		}
		return st.State == models.JobDone
	}, 5*time.Second, 50*time.Millisecond)
	require.Len(t, st.Results, 2)
	assert.Equal(t, models.LabelPositive, st.Results[0].Label)
	assert.Equal(t, models.LabelNegative, st.Results[1].Label)

	rec, _ = call(t, s, http.MethodGet, "/api/sentiment/jobs/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = callJSON(t, s, http.MethodPost, "/api/sentiment/jobs", `{"text":"a\nb\nc\nd"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
