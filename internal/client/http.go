package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/quickreply/internal/model"
	"github.com/alfredjeanlab/quickreply/internal/presence"
)

// HTTPClient implements Client using the coordinator's HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:7391"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Catalog ---

func (c *HTTPClient) GetCatalog(ctx context.Context) (*model.Catalog, error) {
	var cat model.Catalog
	if err := c.doJSON(ctx, http.MethodGet, "/v1/catalog", nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *HTTPClient) AddCategory(ctx context.Context, name string) (*model.Category, error) {
	var cat model.Category
	if err := c.doJSON(ctx, http.MethodPost, "/v1/categories", map[string]string{"name": name}, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *HTTPClient) RenameCategory(ctx context.Context, id, name string) (*model.Category, error) {
	var cat model.Category
	if err := c.doJSON(ctx, http.MethodPatch, "/v1/categories/"+url.PathEscape(id), map[string]string{"name": name}, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (c *HTTPClient) DeleteCategory(ctx context.Context, id string) (bool, error) {
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/v1/categories/"+url.PathEscape(id), nil, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

func (c *HTTPClient) AddTemplate(ctx context.Context, categoryID string, in model.TemplateInput) (*model.Template, error) {
	var t model.Template
	if err := c.doJSON(ctx, http.MethodPost, "/v1/categories/"+url.PathEscape(categoryID)+"/templates", in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) UpdateTemplate(ctx context.Context, categoryID, templateID string, patch model.TemplatePatch) (*model.Template, error) {
	var t model.Template
	path := "/v1/categories/" + url.PathEscape(categoryID) + "/templates/" + url.PathEscape(templateID)
	if err := c.doJSON(ctx, http.MethodPatch, path, patch, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) DeleteTemplate(ctx context.Context, categoryID, templateID string) (bool, error) {
	var resp struct {
		Deleted bool `json:"deleted"`
	}
	path := "/v1/categories/" + url.PathEscape(categoryID) + "/templates/" + url.PathEscape(templateID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

func (c *HTTPClient) MoveTemplate(ctx context.Context, templateID, toCategoryID string) (*model.Template, error) {
	var t model.Template
	body := map[string]string{"categoryId": toCategoryID}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/templates/"+url.PathEscape(templateID)+"/move", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *HTTPClient) Search(ctx context.Context, query string) ([]model.Match, error) {
	var matches []model.Match
	if err := c.doJSON(ctx, http.MethodGet, "/v1/search?q="+url.QueryEscape(query), nil, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// Export returns the exported document exactly as the server wrote it.
func (c *HTTPClient) Export(ctx context.Context) ([]byte, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/v1/export", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *HTTPClient) Import(ctx context.Context, blob []byte) (*model.Catalog, error) {
	var cat model.Catalog
	if err := c.doJSON(ctx, http.MethodPost, "/v1/import", json.RawMessage(blob), &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// --- Sync ---

func (c *HTTPClient) SyncStatus(ctx context.Context) (*model.SyncState, error) {
	var st model.SyncState
	if err := c.doJSON(ctx, http.MethodGet, "/v1/sync/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) SyncPull(ctx context.Context) (*PullResponse, error) {
	var resp PullResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sync/pull", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) SetOnline(ctx context.Context, online bool) (*model.SyncState, error) {
	var st model.SyncState
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sync/online", map[string]bool{"online": online}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// --- Overlays ---

func (c *HTTPClient) ListOverlays(ctx context.Context) ([]model.OverlayRecord, error) {
	var recs []model.OverlayRecord
	if err := c.doJSON(ctx, http.MethodGet, "/v1/overlays", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *HTTPClient) ListSurfaces(ctx context.Context) ([]presence.Entry, error) {
	var entries []presence.Entry
	if err := c.doJSON(ctx, http.MethodGet, "/v1/surfaces", nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) ToggleOverlay(ctx context.Context, tabID int64) (bool, error) {
	var resp struct {
		Visible bool `json:"visible"`
	}
	path := "/v1/overlays/" + strconv.FormatInt(tabID, 10) + "/toggle"
	if err := c.doJSON(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Visible, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

// FieldError is a field-level validation failure reported by the server.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error  string       `json:"error"`
			Fields []FieldError `json:"fields"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error, Fields: errResp.Fields}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
