package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerfleet/regional-broker/internal/broker"
	"github.com/routerfleet/regional-broker/internal/config"
	"github.com/routerfleet/regional-broker/internal/domain"
)

func newTestServer() *Server {
	limits := broker.DefaultLimits()
	limits.WorkOffline = true
	return NewServer(config.Config{}, broker.New(limits, nil))
}

func TestEnqueueHandler_AcceptsValidRequest(t *testing.T) {
	srv := newTestServer()

	body, err := json.Marshal(map[string]any{
		"jobId": "job-1", "graphId": "G", "version": "V", "width": 2, "height": 2,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/enqueue/regional", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.EnqueueHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestEnqueueHandler_RejectsMissingWidth(t *testing.T) {
	srv := newTestServer()

	body, err := json.Marshal(map[string]any{"jobId": "job-2", "graphId": "G", "version": "V", "height": 2})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/enqueue/regional", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.EnqueueHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnqueueHandler_RejectsDuplicate(t *testing.T) {
	srv := newTestServer()
	body, err := json.Marshal(map[string]any{
		"jobId": "job-dup", "graphId": "G", "version": "V", "width": 1, "height": 1,
	})
	require.NoError(t, err)

	req1 := httptest.NewRequest(http.MethodPost, "/enqueue/regional", bytes.NewReader(body))
	rec1 := httptest.NewRecorder()
	srv.EnqueueHandler().ServeHTTP(rec1, req1)
	require.Equal(t, http.StatusAccepted, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/enqueue/regional", bytes.NewReader(body))
	rec2 := httptest.NewRecorder()
	srv.EnqueueHandler().ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusConflict, rec2.Code)
}

func TestEnqueueHandler_MalformedBody(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/enqueue/regional", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.EnqueueHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDequeueHandler_ReturnsEmptyArrayNotNull(t *testing.T) {
	srv := newTestServer()
	body, err := json.Marshal(domain.WorkerStatus{WorkerID: "w1", GraphID: "G", Version: "V"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/dequeue/regional", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.DequeueHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestDequeueHandler_ReturnsEnqueuedTasks(t *testing.T) {
	srv := newTestServer()
	enqueueBody, err := json.Marshal(map[string]any{
		"jobId": "job-3", "graphId": "G", "version": "V", "width": 2, "height": 1,
	})
	require.NoError(t, err)
	enqReq := httptest.NewRequest(http.MethodPost, "/enqueue/regional", bytes.NewReader(enqueueBody))
	enqRec := httptest.NewRecorder()
	srv.EnqueueHandler().ServeHTTP(enqRec, enqReq)
	require.Equal(t, http.StatusAccepted, enqRec.Code)

	dqBody, err := json.Marshal(domain.WorkerStatus{WorkerID: "w1", GraphID: "G", Version: "V"})
	require.NoError(t, err)
	dqReq := httptest.NewRequest(http.MethodPost, "/dequeue/regional", bytes.NewReader(dqBody))
	dqRec := httptest.NewRecorder()
	srv.DequeueHandler().ServeHTTP(dqRec, dqReq)

	require.Equal(t, http.StatusOK, dqRec.Code)
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal(dqRec.Body.Bytes(), &tasks))
	assert.Len(t, tasks, 2)
}

func TestDequeueHandler_RejectsMissingWorkerID(t *testing.T) {
	srv := newTestServer()
	body, err := json.Marshal(map[string]string{"graphId": "G", "version": "V"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/dequeue/regional", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.DequeueHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func withChiParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCompleteHandler_MarksTaskComplete(t *testing.T) {
	srv := newTestServer()
	enqueueBody, err := json.Marshal(map[string]any{
		"jobId": "job-4", "graphId": "G", "version": "V", "width": 1, "height": 1,
	})
	require.NoError(t, err)
	enqReq := httptest.NewRequest(http.MethodPost, "/enqueue/regional", bytes.NewReader(enqueueBody))
	enqRec := httptest.NewRecorder()
	srv.EnqueueHandler().ServeHTTP(enqRec, enqReq)
	require.Equal(t, http.StatusAccepted, enqRec.Code)

	req := withChiParams(httptest.NewRequest(http.MethodPost, "/complete/job-4/0", nil),
		map[string]string{"jobId": "job-4", "taskIndex": "0"})
	rec := httptest.NewRecorder()
	srv.CompleteHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompleteHandler_UnknownJobReturnsNotFound(t *testing.T) {
	srv := newTestServer()
	req := withChiParams(httptest.NewRequest(http.MethodPost, "/complete/missing/0", nil),
		map[string]string{"jobId": "missing", "taskIndex": "0"})
	rec := httptest.NewRecorder()
	srv.CompleteHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCompleteHandler_NonIntegerIndex(t *testing.T) {
	srv := newTestServer()
	req := withChiParams(httptest.NewRequest(http.MethodPost, "/complete/job-4/x", nil),
		map[string]string{"jobId": "job-4", "taskIndex": "x"})
	rec := httptest.NewRecorder()
	srv.CompleteHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteJobHandler(t *testing.T) {
	srv := newTestServer()
	enqueueBody, err := json.Marshal(map[string]any{
		"jobId": "job-5", "graphId": "G", "version": "V", "width": 1, "height": 1,
	})
	require.NoError(t, err)
	enqReq := httptest.NewRequest(http.MethodPost, "/enqueue/regional", bytes.NewReader(enqueueBody))
	enqRec := httptest.NewRecorder()
	srv.EnqueueHandler().ServeHTTP(enqRec, enqReq)
	require.Equal(t, http.StatusAccepted, enqRec.Code)

	req := withChiParams(httptest.NewRequest(http.MethodDelete, "/jobs/job-5", nil), map[string]string{"jobId": "job-5"})
	rec := httptest.NewRecorder()
	srv.DeleteJobHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	reqAgain := withChiParams(httptest.NewRequest(http.MethodDelete, "/jobs/job-5", nil), map[string]string{"jobId": "job-5"})
	recAgain := httptest.NewRecorder()
	srv.DeleteJobHandler().ServeHTTP(recAgain, reqAgain)
	assert.Equal(t, http.StatusNotFound, recAgain.Code)
}

func TestListJobsAndWorkersHandlers(t *testing.T) {
	srv := newTestServer()
	enqueueBody, err := json.Marshal(map[string]any{
		"jobId": "job-6", "graphId": "G", "version": "V", "width": 1, "height": 1,
	})
	require.NoError(t, err)
	enqReq := httptest.NewRequest(http.MethodPost, "/enqueue/regional", bytes.NewReader(enqueueBody))
	enqRec := httptest.NewRecorder()
	srv.EnqueueHandler().ServeHTTP(enqRec, enqReq)
	require.Equal(t, http.StatusAccepted, enqRec.Code)

	jobsReq := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	jobsRec := httptest.NewRecorder()
	srv.ListJobsHandler().ServeHTTP(jobsRec, jobsReq)
	assert.Equal(t, http.StatusOK, jobsRec.Code)

	workersReq := httptest.NewRequest(http.MethodGet, "/workers", nil)
	workersRec := httptest.NewRecorder()
	srv.ListWorkersHandler().ServeHTTP(workersRec, workersReq)
	assert.Equal(t, http.StatusOK, workersRec.Code)
}

func TestHealthzHandler(t *testing.T) {
	srv := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.HealthzHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminTokenHandler(t *testing.T) {
	cfg := config.Config{AdminUsername: "admin", AdminPassword: "secret", AdminSessionSecret: "hmac-secret"}
	limits := broker.DefaultLimits()
	limits.WorkOffline = true
	srv := NewServer(cfg, broker.New(limits, nil))

	body, err := json.Marshal(map[string]string{"username": "admin", "password": "secret"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.AdminTokenHandler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.NotEmpty(t, out["token"])
}

func TestAdminTokenHandler_RejectsBadCredentials(t *testing.T) {
	cfg := config.Config{AdminUsername: "admin", AdminPassword: "secret", AdminSessionSecret: "hmac-secret"}
	limits := broker.DefaultLimits()
	limits.WorkOffline = true
	srv := NewServer(cfg, broker.New(limits, nil))

	body, err := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/admin/token", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.AdminTokenHandler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
