package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obralink/obralink/internal/entity"
	"github.com/obralink/obralink/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestUpsert_SendsEntityWithBearer(t *testing.T) {
	var (
		gotPath  string
		gotAuth  string
		gotBody  map[string]any
		reqCount int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqCount++
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	c.SetToken("tok123")

	e := entity.Entity{ID: "r1", CompanyID: "c1", Fields: entity.Body{"title": "Roof"}}
	require.NoError(t, c.Upsert(context.Background(), entity.Records, e))
	require.NoError(t, c.Upsert(context.Background(), entity.Records, e))

	assert.Equal(t, "/api/v1/records", gotPath)
	assert.Equal(t, "Bearer tok123", gotAuth)
	assert.Equal(t, "r1", gotBody["id"])
	assert.Equal(t, "c1", gotBody["companyId"])
	assert.Equal(t, "Roof", gotBody["title"])
	assert.Equal(t, 2, reqCount)
}

func TestSelectWhere_EncodesFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "c1", r.URL.Query().Get("companyId"))
		assert.Empty(t, r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"r1","companyId":"c1","title":"Roof"}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())

	set, err := c.SelectWhere(context.Background(), entity.Records, entity.Filter{CompanyID: "c1"})
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "r1", set[0].ID)
	assert.Equal(t, "Roof", set[0].Fields["title"])
}

func TestDeleteWhere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "r1", r.URL.Query().Get("id"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	require.NoError(t, c.DeleteWhere(context.Background(), entity.Records, entity.Filter{ID: "r1"}))
}

func TestDo_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"company mismatch"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	err := c.Upsert(context.Background(), entity.Records, entity.Entity{ID: "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company mismatch")
}

func TestLogin_StoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "builder", body.Username)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userId":"u1","companyId":"c1","role":"tenant","accessToken":"tok"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	res, err := c.Login(context.Background(), "builder", "secret")
	require.NoError(t, err)
	assert.Equal(t, "c1", res.CompanyID)
	assert.Equal(t, "tok", c.bearer())
}

func TestPresignRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			_, _ = w.Write([]byte(`{"key":"documents/2026/08/abc.pdf","url":"http://s3/put"}`))
		case http.MethodGet:
			assert.Equal(t, "documents/2026/08/abc.pdf", r.URL.Query().Get("key"))
			_, _ = w.Write([]byte(`{"url":"http://s3/get"}`))
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())

	key, putURL, err := c.PresignPut(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "documents/2026/08/abc.pdf", key)
	assert.Equal(t, "http://s3/put", putURL)

	getURL, err := c.PresignGet(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "http://s3/get", getURL)
}
