// Package apptrust is a minimal client for the AppTrust application
// version API: listing versions, reading a version's stage, patching
// tags and properties, and invoking a stage rollback.
package apptrust

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

	"github.com/bookverse/apptrust-rollback/internal/release"
)

// DefaultTimeout bounds every registry call. The registry can be slow
// while a rollback is in flight, so the bound is generous.
const DefaultTimeout = 600 * time.Second

// TransportError wraps any network, HTTP or decoding failure from the
// registry. StatusCode is zero when no response was received.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("apptrust: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("apptrust: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client talks to one AppTrust instance with bearer-token auth.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the given API base URL, e.g.
// "https://host/apptrust/api/v1". A zero timeout uses DefaultTimeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// VersionDetail is the subset of the version content endpoint the
// rollback flow needs.
type VersionDetail struct {
	CurrentStage string `json:"current_stage"`
}

// PatchRequest carries the mutable fields of a version record. Nil
// fields are omitted from the request body.
type PatchRequest struct {
	Tag              *string             `json:"tag,omitempty"`
	Properties       map[string][]string `json:"properties,omitempty"`
	DeleteProperties []string            `json:"delete_properties,omitempty"`
}

type listVersionsResponse struct {
	Versions []struct {
		Version       string  `json:"version"`
		Tag           *string `json:"tag"`
		ReleaseStatus string  `json:"release_status"`
	} `json:"versions"`
}

// ListVersions returns the raw version listing for an application,
// newest first as reported by the registry. Rows are normalized: a
// null tag becomes the empty string and the release status is
// uppercased. No filtering happens here.
func (c *Client) ListVersions(ctx context.Context, appKey string) ([]release.Record, error) {
	path := fmt.Sprintf("/applications/%s/versions", url.PathEscape(appKey))
	query := url.Values{}
	query.Set("limit", "1000")
	query.Set("order_by", "created")
	query.Set("order_asc", "false")

	var resp listVersionsResponse
	if err := c.do(ctx, "list versions", http.MethodGet, path+"?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}

	records := make([]release.Record, 0, len(resp.Versions))
	for _, v := range resp.Versions {
		tag := ""
		if v.Tag != nil {
			tag = *v.Tag
		}
		records = append(records, release.Record{
			Version: v.Version,
			Tag:     tag,
			Status:  release.ParseStatus(v.ReleaseStatus),
		})
	}
	return records, nil
}

// GetVersion fetches the content of a single application version.
func (c *Client) GetVersion(ctx context.Context, appKey, version string) (VersionDetail, error) {
	path := fmt.Sprintf("/applications/%s/versions/%s",
		url.PathEscape(appKey), url.PathEscape(version))
	var detail VersionDetail
	if err := c.do(ctx, "get version", http.MethodGet, path, nil, &detail); err != nil {
		return VersionDetail{}, err
	}
	return detail, nil
}

// PatchVersion updates a version's tag and/or properties. Properties
// are overwritten, not appended.
func (c *Client) PatchVersion(ctx context.Context, appKey, version string, patch PatchRequest) error {
	path := fmt.Sprintf("/applications/%s/versions/%s",
		url.PathEscape(appKey), url.PathEscape(version))
	return c.do(ctx, "patch version", http.MethodPatch, path, patch, nil)
}

// InvokeRollback asks the registry to roll the version back out of
// fromStage.
func (c *Client) InvokeRollback(ctx context.Context, appKey, version, fromStage string) error {
	path := fmt.Sprintf("/applications/%s/versions/%s/rollback",
		url.PathEscape(appKey), url.PathEscape(version))
	body := map[string]string{"from_stage": fromStage}
	return c.do(ctx, "invoke rollback", http.MethodPost, path, body, nil)
}

// do performs one API round-trip. body (when non-nil) is JSON-encoded;
// out (when non-nil) receives the decoded JSON response.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(raw))),
		}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}
