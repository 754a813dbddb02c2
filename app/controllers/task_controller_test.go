package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"taskforest/app/controllers"
	"taskforest/app/lock"
	"taskforest/app/models"
	"taskforest/app/routes"
	"taskforest/app/services"
	"taskforest/app/store/memstore"
)

const email = "ada@example.com"

func newServer(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := services.NewTaskService(memstore.New(), lock.NewKeyedMutex(), logger)
	router := mux.NewRouter()
	routes.RegisterRoutes(router,
		controllers.NewTaskController(svc, logger),
		controllers.NewUserController(svc, logger),
		routes.Options{Logger: logger})
	return router
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-User-Email", email)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/users", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/v1/tasks", models.TaskCreateRequest{ParentID: "0", Name: "T1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	t1 := decodeBody[models.TaskResponse](t, rec)
	assert.Equal(t, 0, t1.Priority)

	rec = do(t, h, http.MethodPost, "/api/v1/tasks", models.TaskCreateRequest{ParentID: t1.TaskID, Name: "T2"})
	require.Equal(t, http.StatusOK, rec.Code)
	t2 := decodeBody[models.TaskResponse](t, rec)

	rec = do(t, h, http.MethodGet, "/api/v1/tasks/roots", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	roots := decodeBody[models.SearchTasksResponse](t, rec)
	require.Len(t, roots.TaskList, 1)
	assert.Equal(t, t1.TaskID, roots.TaskList[0].TaskID)

	rec = do(t, h, http.MethodGet, "/api/v1/tasks/"+t1.TaskID+"/subtasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	kids := decodeBody[models.SearchTasksResponse](t, rec)
	require.Len(t, kids.TaskList, 1)
	assert.Equal(t, t2.TaskID, kids.TaskList[0].TaskID)

	rec = do(t, h, http.MethodGet, "/api/v1/tasks/"+t2.TaskID+"/routes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	route := decodeBody[models.TaskRouteResponse](t, rec)
	require.Len(t, route.Routes, 2)
	assert.Equal(t, 1, route.Routes[0].Order)

	rec = do(t, h, http.MethodPost, "/api/v1/tasks/delete", models.TaskDeleteRequest{TaskID: t1.TaskID, Cascade: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[models.TaskDeleteResponse](t, rec).DeletedNodes)

	rec = do(t, h, http.MethodPost, "/api/v1/tasks/restore", models.TaskRelocateRequest{TaskID: t1.TaskID, ParentID: "0"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[models.TaskRestoreResponse](t, rec).RestoredNodes)

	rec = do(t, h, http.MethodPost, "/api/v1/tasks/archive", models.TaskArchiveRequest{TaskID: t2.TaskID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[models.TaskArchiveResponse](t, rec).ArchivedNodes)

	rec = do(t, h, http.MethodPost, "/api/v1/tasks/unarchive", models.TaskUnarchiveRequest{TaskID: t2.TaskID})
	require.Equal(t, http.StatusOK, rec.Code)
	un := decodeBody[models.TaskUnarchiveResponse](t, rec)
	assert.Equal(t, 1, un.UnarchivedNodes)
	assert.Equal(t, t1.TaskID, un.ParentID)

	rec = do(t, h, http.MethodPost, "/api/v1/tasks/search", models.TaskSearchByNameRequest{Name: "T"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[models.SearchTasksResponse](t, rec).TaskList, 2)

	rec = do(t, h, http.MethodGet, "/api/v1/tasks/all?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[models.SearchTasksResponse](t, rec).TaskList, 1)

	rec = do(t, h, http.MethodDelete, "/api/v1/tasks/drop", models.TaskDeleteRequest{TaskID: t1.TaskID, Cascade: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, decodeBody[models.TaskDeleteResponse](t, rec).DeletedNodes)

	rec = do(t, h, http.MethodDelete, "/api/v1/tasks/drop/all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decodeBody[models.EmptyTrashResponse](t, rec).DeletedNodes)
}

func TestErrorStatuses(t *testing.T) {
	h := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/users", nil).Code)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"reserved id", http.MethodGet, "/api/v1/tasks/trash", nil, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/v1/tasks/ghost", nil, http.StatusNotFound},
		{"missing parent", http.MethodPost, "/api/v1/tasks", models.TaskCreateRequest{ParentID: "ghost", Name: "x"}, http.StatusNotFound},
		{"reserved parent", http.MethodPost, "/api/v1/tasks/move", models.TaskRelocateRequest{TaskID: "a", ParentID: "archive"}, http.StatusBadRequest},
		{"bad date", http.MethodGet, "/api/v1/tasks?startDate=soon&endDate=2024-01-01", nil, http.StatusBadRequest},
		{"missing endDate", http.MethodGet, "/api/v1/tasks?startDate=2024-01-01", nil, http.StatusBadRequest},
		{"missing both dates", http.MethodGet, "/api/v1/tasks", nil, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/v1/tasks/all?limit=many", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestMissingIdentity(t *testing.T) {
	h := newServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/roots", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnprovisionedUser(t *testing.T) {
	h := newServer(t)
	rec := do(t, h, http.MethodGet, "/api/v1/tasks/roots", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDateRangeRoute(t *testing.T) {
	h := newServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/v1/users", nil).Code)

	body := []byte(`{"parentId":"0","name":"dentist","startDate":"2024-04-03T10:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks", bytes.NewReader(body))
	req.Header.Set("X-User-Email", email)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/v1/tasks?startDate=2024-04-01&endDate=2024-04-03", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[models.SearchTasksResponse](t, rec)
	require.Len(t, got.TaskList, 1)
	assert.Equal(t, "dentist", got.TaskList[0].Name)
}
