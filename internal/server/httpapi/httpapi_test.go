package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obralink/obralink/internal/common"
	"github.com/obralink/obralink/internal/entity"
	"github.com/obralink/obralink/internal/logging"
	"github.com/obralink/obralink/internal/server/auth"
	"github.com/obralink/obralink/internal/server/events"
	"github.com/obralink/obralink/internal/server/models"
)

var testSecret = []byte("test-secret")

type memEntities struct {
	mu   sync.Mutex
	sets map[entity.Kind]map[string]entity.Entity
}

func newMemEntities() *memEntities {
	return &memEntities{sets: map[entity.Kind]map[string]entity.Entity{}}
}

func (m *memEntities) put(kind entity.Kind, e entity.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[kind] == nil {
		m.sets[kind] = map[string]entity.Entity{}
	}
	m.sets[kind][e.ID] = e
}

func (m *memEntities) Upsert(_ context.Context, kind entity.Kind, e entity.Entity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[kind] == nil {
		m.sets[kind] = map[string]entity.Entity{}
	}
	cur, existed := m.sets[kind][e.ID]
	if existed && cur.CompanyID != e.CompanyID {
		return false, common.ErrCompanyMismatch
	}
	m.sets[kind][e.ID] = e
	return !existed, nil
}

func (m *memEntities) SelectWhere(_ context.Context, kind entity.Kind, f entity.Filter) ([]entity.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Entity
	for _, e := range m.sets[kind] {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memEntities) DeleteWhere(_ context.Context, kind entity.Kind, f entity.Filter) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, e := range m.sets[kind] {
		if f.Match(e) {
			ids = append(ids, id)
			delete(m.sets[kind], id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type fakeAuth struct{}

func (fakeAuth) Register(_ context.Context, username, _, _ string) (*auth.Result, error) {
	if username == "taken" {
		return nil, common.ErrUsernameTaken
	}
	return &auth.Result{UserID: "u1", CompanyID: "c1", Role: models.RoleTenant, AccessToken: "tok"}, nil
}

func (fakeAuth) Login(_ context.Context, username, password string) (*auth.Result, error) {
	if username != "builder" || password != "hunter2" {
		return nil, common.ErrUnauthorized
	}
	return &auth.Result{UserID: "u1", CompanyID: "c1", Role: models.RoleTenant, AccessToken: "tok"}, nil
}

type fakeSigner struct{}

func (fakeSigner) GetPresignedPutUrl(context.Context) (string, string, error) {
	return "documents/2026/1/2/abc", "http://signed/put", nil
}

func (fakeSigner) GetPresignedGetUrl(_ context.Context, key string) (string, error) {
	return "http://signed/get/" + key, nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestServer(t *testing.T) (*httptest.Server, *memEntities, *events.Hub) {
	t.Helper()
	repo := newMemEntities()
	hub := events.NewHub()
	h := NewRouter(fakeAuth{}, repo, fakeSigner{}, hub, testSecret, testLogger())
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, repo, hub
}

func tokenFor(t *testing.T, companyID, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken("u-"+companyID, companyID, role, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRegisterAndLogin(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "",
		map[string]string{"username": "builder", "password": "hunter2", "companyName": "Acme"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "c1", res["companyId"])

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/register", "",
		map[string]string{"username": "taken", "password": "x"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "",
		map[string]string{"username": "builder", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestBearerRequired(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/records", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/records", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestUpsert_TenantScoping(t *testing.T) {
	ts, repo, hub := newTestServer(t)
	tok := tokenFor(t, "c1", models.RoleTenant)

	ch, cancel := hub.Subscribe(entity.Records, "")
	defer cancel()

	// no companyId in the body: stamped with the caller's company
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/records", tok,
		entity.Entity{ID: "r1", Fields: entity.Body{"title": "Roof"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stored := decodeBody[entity.Entity](t, resp)
	assert.Equal(t, "c1", stored.CompanyID)
	assert.Equal(t, "c1", repo.sets[entity.Records]["r1"].CompanyID)

	ev := <-ch
	assert.Equal(t, events.EventInsert, ev.Type)
	assert.Equal(t, "r1", ev.Record.ID)

	// replacing the same id reports an update event
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/records", tok,
		entity.Entity{ID: "r1", CompanyID: "c1", Fields: entity.Body{"title": "Roof v2"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	ev = <-ch
	assert.Equal(t, events.EventUpdate, ev.Type)

	// another company's id is rejected
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/records", tok,
		entity.Entity{ID: "r2", CompanyID: "c2"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestUpsert_CannotTakeOverAnotherCompanysRow(t *testing.T) {
	ts, repo, _ := newTestServer(t)
	repo.put(entity.Records, entity.Entity{ID: "r1", CompanyID: "c2", Fields: entity.Body{"title": "Deck"}})

	// a c1 tenant replaying c2's record id under its own company must not
	// reassign or overwrite the row
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/records", tokenFor(t, "c1", models.RoleTenant),
		entity.Entity{ID: "r1", CompanyID: "c1", Fields: entity.Body{"title": "Hijacked"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	kept := repo.sets[entity.Records]["r1"]
	assert.Equal(t, "c2", kept.CompanyID)
	assert.Equal(t, "Deck", kept.Fields["title"])
}

func TestUpsert_GlobalKindsAdminOnly(t *testing.T) {
	ts, repo, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/coupons", tokenFor(t, "c1", models.RoleTenant),
		entity.Entity{ID: "cp1"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/coupons", tokenFor(t, "", models.RoleAdmin),
		entity.Entity{ID: "cp1", Fields: entity.Body{"discount": 10}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Contains(t, repo.sets[entity.Coupons], "cp1")
}

func TestSelect_TenantSeesOnlyOwnCompany(t *testing.T) {
	ts, repo, _ := newTestServer(t)
	repo.put(entity.Records, entity.Entity{ID: "r1", CompanyID: "c1"})
	repo.put(entity.Records, entity.Entity{ID: "r2", CompanyID: "c2"})

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/records", tokenFor(t, "c1", models.RoleTenant), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	set := decodeBody[[]entity.Entity](t, resp)
	require.Len(t, set, 1)
	assert.Equal(t, "r1", set[0].ID)

	// asking for the other company outright is refused
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/records?companyId=c2", tokenFor(t, "c1", models.RoleTenant), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// admin sees everything
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/records", tokenFor(t, "", models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	set = decodeBody[[]entity.Entity](t, resp)
	assert.Len(t, set, 2)
}

func TestSelect_UnknownKind(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/gadgets", tokenFor(t, "c1", models.RoleTenant), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDelete(t *testing.T) {
	ts, repo, hub := newTestServer(t)
	repo.put(entity.Records, entity.Entity{ID: "r1", CompanyID: "c1"})

	ch, cancel := hub.Subscribe(entity.Records, "")
	defer cancel()

	// a filterless delete is refused
	resp := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/records", tokenFor(t, "c1", models.RoleTenant), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/records?id=r1", tokenFor(t, "c1", models.RoleTenant), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	res := decodeBody[map[string][]string](t, resp)
	assert.Equal(t, []string{"r1"}, res["deleted"])
	assert.Empty(t, repo.sets[entity.Records])

	ev := <-ch
	assert.Equal(t, events.EventDelete, ev.Type)
	assert.Equal(t, "r1", ev.Record.ID)
}

func TestEvents_StreamsChanges(t *testing.T) {
	ts, _, hub := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/records/events", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, "c1", models.RoleTenant))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	done := make(chan events.Event, 1)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			var ev events.Event
			if json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev) == nil {
				done <- ev
				return
			}
		}
	}()

	// keep publishing until the stream goroutine reports the event
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-done:
			assert.Equal(t, events.EventInsert, ev.Type)
			assert.Equal(t, "r1", ev.Record.ID)
			return
		case <-deadline:
			t.Fatal("timed out waiting for streamed event")
		case <-time.After(50 * time.Millisecond):
			hub.Publish(entity.Records, events.Event{
				Type:   events.EventInsert,
				Record: entity.Entity{ID: "r1", CompanyID: "c1"},
			})
		}
	}
}

func TestDocuments(t *testing.T) {
	ts, _, _ := newTestServer(t)
	tok := tokenFor(t, "c1", models.RoleTenant)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/documents", tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	put := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "http://signed/put", put["url"])
	assert.NotEmpty(t, put["key"])

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/documents?key="+put["key"], tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	get := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "http://signed/get/"+put["key"], get["url"])

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/documents", tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(fmt.Sprintf("%s/health", ts.URL))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
