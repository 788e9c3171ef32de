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
	"time"

	"github.com/alfredjeanlab/quickreply/internal/model"
)

// DefaultTimeout bounds every remote call.
const DefaultTimeout = 10 * time.Second

// DocumentID is the id of the per-principal catalog document.
const DocumentID = "catalog"

// HTTPMirror talks to a REST document store:
//
//	GET   {base}/v1/users/{principal}/catalog
//	PATCH {base}/v1/users/{principal}/catalog
//	POST  {base}/v1/users/{principal}?documentId=catalog
type HTTPMirror struct {
	baseURL    string
	httpClient *http.Client
}

var _ Mirror = (*HTTPMirror)(nil)

// NewHTTPMirror creates a mirror rooted at baseURL. A zero timeout selects
// DefaultTimeout.
func NewHTTPMirror(baseURL string, timeout time.Duration) *HTTPMirror {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPMirror{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *HTTPMirror) documentPath(principal string) string {
	return "/v1/users/" + url.PathEscape(principal) + "/" + DocumentID
}

func (m *HTTPMirror) Get(ctx context.Context, id Identity) (*model.Catalog, error) {
	var c model.Catalog
	if err := m.doJSON(ctx, "get", id, http.MethodGet, m.documentPath(id.Principal), nil, &c); err != nil {
		return nil, err
	}
	if c.Categories == nil {
		return nil, syncErr("get", 0, fmt.Errorf("document has no categories: %w", ErrNotFound))
	}
	return &c, nil
}

func (m *HTTPMirror) Update(ctx context.Context, id Identity, c *model.Catalog) error {
	return m.doJSON(ctx, "update", id, http.MethodPatch, m.documentPath(id.Principal), c, nil)
}

func (m *HTTPMirror) Create(ctx context.Context, id Identity, c *model.Catalog) error {
	path := "/v1/users/" + url.PathEscape(id.Principal) + "?documentId=" + url.QueryEscape(DocumentID)
	return m.doJSON(ctx, "create", id, http.MethodPost, path, c, nil)
}

func (m *HTTPMirror) doJSON(ctx context.Context, op string, id Identity, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return syncErr(op, 0, fmt.Errorf("marshaling request body: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, bodyReader)
	if err != nil {
		return syncErr(op, 0, fmt.Errorf("creating request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id.Token != "" {
		req.Header.Set("Authorization", "Bearer "+id.Token)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return syncErr(op, 0, fmt.Errorf("performing request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return syncErr(op, resp.StatusCode, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return syncErr(op, resp.StatusCode, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return syncErr(op, resp.StatusCode, fmt.Errorf("%s", errResp.Error))
		}
		return syncErr(op, resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(respBody))))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return syncErr(op, resp.StatusCode, fmt.Errorf("decoding response: %w", err))
		}
	}
	return nil
}
