package api

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-contacts/backend/internal/entity"
	"media-contacts/backend/internal/graph"
	"media-contacts/backend/internal/graph/graphtest"
	"media-contacts/backend/internal/relationship"
	apperrors "media-contacts/backend/pkg/errors"
)

func setupRouter(entities, relations graph.Executor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(entity.NewRegistry(entities), relationship.NewManager(relations))
	h.Register(router.Group("/api"))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

func TestCompanyLifecycle(t *testing.T) {
	router := setupRouter(graphtest.NewStore().Executor(), graphtest.New())

	w, created := doJSON(t, router, "POST", "/api/companies", map[string]any{
		"properties": map[string]any{"name": "Canon", "email": "canon@x.com", "founding_date": "1937-08-10"},
		"tags":       []string{"Electronics"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	uid := created["uid"].(string)
	assert.Equal(t, "Company", created["kind"])
	assert.Equal(t, []any{"Electronics"}, created["tags"])
	assert.Equal(t, "1937-08-10", created["properties"].(map[string]any)["founding_date"])

	w, got := doJSON(t, router, "GET", "/api/companies/"+uid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uid, got["uid"])

	w, list := doJSON(t, router, "GET", "/api/companies?tags=Electronics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, list["results"], 1)

	w, list = doJSON(t, router, "GET", "/api/companies?tags=Fashion", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, list["results"])

	w, list = doJSON(t, router, "GET", "/api/companies?name=Cannon&max_distance=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := list["results"].([]any)
	require.Len(t, results, 1)
	assert.EqualValues(t, 1, results[0].(map[string]any)["distance"])

	w, updated := doJSON(t, router, "PUT", "/api/companies/"+uid+"/details", map[string]any{
		"properties": map[string]any{"uid": "other", "headquarters": "Tokyo"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uid, updated["uid"])
	assert.Equal(t, "Tokyo", updated["properties"].(map[string]any)["headquarters"])

	w, updated = doJSON(t, router, "PUT", "/api/companies/"+uid+"/industries", map[string]any{
		"add":    []string{"Imaging"},
		"remove": []string{"Electronics"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"Imaging"}, updated["tags"])
}

func TestEntityRoutes_Errors(t *testing.T) {
	router := setupRouter(graphtest.NewStore().Executor(), graphtest.New())

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing body field", "POST", "/api/journalists", map[string]any{"tags": []string{"Tech"}}, http.StatusBadRequest},
		{"missing required property", "POST", "/api/journalists", map[string]any{"properties": map[string]any{"first_name": "Jon"}}, http.StatusBadRequest},
		{"invalid tag", "POST", "/api/media", map[string]any{"properties": map[string]any{"first_name": "A", "last_name": "B"}, "tags": []string{"Tech News"}}, http.StatusBadRequest},
		{"unknown uid", "GET", "/api/medialists/nope", nil, http.StatusNotFound},
		{"update unknown", "PUT", "/api/companies/nope/details", map[string]any{"properties": map[string]any{"name": "x"}}, http.StatusNotFound},
		{"retag unknown", "PUT", "/api/companies/nope/industries", map[string]any{"add": []string{"Tech"}}, http.StatusNotFound},
		{"bad distance", "GET", "/api/companies?name=x&max_distance=-2", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, response := doJSON(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, response["error"])
		})
	}
}

func TestEntityRoutes_StoreUnavailable(t *testing.T) {
	exec := graphtest.New().Fails(apperrors.NewConnectionError(stderrors.New("connection refused")))
	router := setupRouter(exec, graphtest.New())

	w, response := doJSON(t, router, "GET", "/api/companies/c-1", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "Failed to fetch entity", response["error"])
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
}

func TestEntityRoutes_QueryFailureIsNotRetryable(t *testing.T) {
	exec := graphtest.New().Fails(apperrors.NewQueryError("MATCH (n)", stderrors.New("syntax error")))
	router := setupRouter(exec, graphtest.New())

	w, _ := doJSON(t, router, "GET", "/api/companies/c-1", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, w.Header().Get("Retry-After"))
}

func TestAddHistory(t *testing.T) {
	relations := graphtest.New().
		Returns(graph.Record{"from_labels": []any{"Journalist"}, "to_labels": []any{"Company"}}).
		HandleWith(func(call graphtest.Call) ([]graph.Record, error) {
			return []graph.Record{{
				"r":        neo4j.Relationship{Type: "EMPLOYMENT", Props: call.Params["props"].(map[string]any)},
				"from_uid": call.Params["from"],
				"to_uid":   call.Params["to"],
			}}, nil
		})
	router := setupRouter(graphtest.New(), relations)

	w, rel := doJSON(t, router, "POST", "/api/people/j-1/history", map[string]any{
		"company_uid": "c-1",
		"role":        "Editor",
		"start_date":  "2020-01-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, "EMPLOYMENT", rel["type"])
	assert.Equal(t, "j-1", rel["from"])
	assert.Equal(t, "c-1", rel["to"])
	props := rel["properties"].(map[string]any)
	assert.Equal(t, "Editor", props["role"])
	assert.Equal(t, "2020-01-15", props["start_date"])
}

func TestAddHistory_Errors(t *testing.T) {
	t.Run("bad date format", func(t *testing.T) {
		router := setupRouter(graphtest.New(), graphtest.New())
		w, _ := doJSON(t, router, "POST", "/api/people/j-1/history", map[string]any{
			"company_uid": "c-1", "role": "Editor", "start_date": "15/01/2020",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("company is a journalist", func(t *testing.T) {
		relations := graphtest.New().
			Returns(graph.Record{"from_labels": []any{"Journalist"}, "to_labels": []any{"Journalist"}})
		router := setupRouter(graphtest.New(), relations)

		w, _ := doJSON(t, router, "POST", "/api/people/j-1/history", map[string]any{
			"company_uid": "j-2", "role": "Editor",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Empty(t, relations.Writes())
	})
}

func TestNotes(t *testing.T) {
	relations := graphtest.New().Returns(graph.Record{
		"r":        neo4j.Relationship{Type: "NOTE", Props: map[string]any{"uid": "n-1", "content": "Call after 10am"}},
		"from_uid": "c-1",
		"to_uid":   "j-1",
		"neighbor": neo4j.Node{Labels: []string{"Company"}, Props: map[string]any{"uid": "c-1", "name": "Canon"}},
	})
	router := setupRouter(graphtest.New(), relations)

	w, response := doJSON(t, router, "GET", "/api/people/j-1/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)

	results := response["results"].([]any)
	require.Len(t, results, 1)
	link := results[0].(map[string]any)
	assert.Equal(t, "n-1", link["relationship"].(map[string]any)["uid"])
	assert.Equal(t, "Canon", link["neighbor"].(map[string]any)["properties"].(map[string]any)["name"])

	w, _ = doJSON(t, router, "POST", "/api/people/j-1/notes", map[string]any{"author_uid": "c-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMembers(t *testing.T) {
	relations := graphtest.New().Returns(graph.Record{"from_labels": []any{"Journalist"}, "to_labels": nil})
	router := setupRouter(graphtest.New(), relations)

	w, response := doJSON(t, router, "POST", "/api/medialists/l-1/members", map[string]any{"person_uid": "j-1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, response["error"], "l-1")

	w, response = doJSON(t, router, "GET", "/api/medialists/l-1/members", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, response["results"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(apperrors.NewInvalidTagError("x y", "bad")))
	assert.Equal(t, http.StatusNotFound, statusFor(apperrors.NewNotFoundError("Company", "c-1")))
	assert.Equal(t, http.StatusConflict, statusFor(apperrors.NewTypeMismatchError("c-1", []string{"Company"}, []string{"Media"})))
	assert.Equal(t, http.StatusInternalServerError, statusFor(apperrors.NewQueryError("MATCH", stderrors.New("boom"))))
	assert.Equal(t, http.StatusInternalServerError, statusFor(stderrors.New("plain")))
}
