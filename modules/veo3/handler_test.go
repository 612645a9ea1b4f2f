package veo3

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veo-studio-server/modules/common/model"
)

func newJobRouter(t *testing.T) (*mux.Router, *QueueGenerator) {
	t.Helper()
	_, client := setupTestRedis(t)
	router := mux.NewRouter()
	NewJobHandler(NewJobStore(client), nil).RegisterRoutes(router)
	return router, NewQueueGenerator(client, nil)
}

func TestJobHandler_Status(t *testing.T) {
	router, queue := newJobRouter(t)
	result, err := queue.Generate(context.Background(), framesParams())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/video/jobs/"+result.Handle, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view JobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, result.Handle, view.JobID)
	assert.Equal(t, "req-42", view.RequestID)
	assert.Equal(t, model.StatusPending, view.Status)
	assert.NotContains(t, rec.Body.String(), "base64")
}

func TestJobHandler_Cancel(t *testing.T) {
	router, queue := newJobRouter(t)
	result, err := queue.Generate(context.Background(), framesParams())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/video/jobs/"+result.Handle+"/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var view JobView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, model.StatusCancelled, view.Status)
}

func TestJobHandler_NotFound(t *testing.T) {
	router, _ := newJobRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/video/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/video/jobs/missing/cancel", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
