package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/obralink/obralink/internal/entity"
	"github.com/obralink/obralink/internal/logging"
)

// HTTPClient talks JSON to the mirror's HTTP API.
//
// The underlying http.Client deliberately carries no timeout: a hung
// request suspends only its own goroutine, and the reconciler's next poll
// pass is what keeps the cache eventually correct. Contexts are still
// honored, so tearing down a view cancels its in-flight calls.
type HTTPClient struct {
	baseURL string
	hc      *http.Client
	log     logging.Logger

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL string, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{},
		log:     log.With("module", "remote"),
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *HTTPClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type apiError struct {
	Error string `json:"error"`
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.bearer(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("mirror request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("mirror responded %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("mirror responded %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode mirror response: %w", err)
		}
	}
	return nil
}

func filterQuery(f entity.Filter) url.Values {
	q := url.Values{}
	if f.ID != "" {
		q.Set("id", f.ID)
	}
	if f.CompanyID != "" {
		q.Set("companyId", f.CompanyID)
	}
	return q
}

type registerRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	CompanyName string `json:"companyName"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *HTTPClient) Register(ctx context.Context, username, password, companyName string) (*LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", nil,
		registerRequest{Username: username, Password: password, CompanyName: companyName}, &res)
	if err != nil {
		return nil, err
	}
	c.SetToken(res.AccessToken)
	return &res, nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var res LoginResult
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil,
		loginRequest{Username: username, Password: password}, &res)
	if err != nil {
		return nil, err
	}
	c.SetToken(res.AccessToken)
	return &res, nil
}

func (c *HTTPClient) Upsert(ctx context.Context, kind entity.Kind, e entity.Entity) error {
	return c.do(ctx, http.MethodPost, "/api/v1/"+string(kind), nil, e, nil)
}

func (c *HTTPClient) SelectWhere(ctx context.Context, kind entity.Kind, f entity.Filter) ([]entity.Entity, error) {
	var set []entity.Entity
	if err := c.do(ctx, http.MethodGet, "/api/v1/"+string(kind), filterQuery(f), nil, &set); err != nil {
		return nil, err
	}
	return set, nil
}

func (c *HTTPClient) DeleteWhere(ctx context.Context, kind entity.Kind, f entity.Filter) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/"+string(kind), filterQuery(f), nil, nil)
}

type presignPutResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

type presignGetResponse struct {
	URL string `json:"url"`
}

func (c *HTTPClient) PresignPut(ctx context.Context) (string, string, error) {
	var res presignPutResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents", nil, nil, &res); err != nil {
		return "", "", err
	}
	return res.Key, res.URL, nil
}

func (c *HTTPClient) PresignGet(ctx context.Context, key string) (string, error) {
	q := url.Values{}
	q.Set("key", key)
	var res presignGetResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/documents", q, nil, &res); err != nil {
		return "", err
	}
	return res.URL, nil
}
