package exportapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grovetools/exports/errors"
	"github.com/grovetools/exports/pkg/models"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/time/rate"
)

// RemoteOptions configures a RemoteClient.
type RemoteOptions struct {
	BaseURL   string
	CSRFToken string
	Timeout   time.Duration
	// RateLimit caps requests per second across all records. 0 disables limiting.
	RateLimit float64
	Burst     int
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// RemoteClient implements Client against the export server's HTTP endpoints.
type RemoteClient struct {
	httpClient *http.Client
	baseURL    string
	csrfToken  string
	limiter    *rate.Limiter
}

// NewRemoteClient creates a RemoteClient for the given server.
func NewRemoteClient(opts RemoteOptions) (*RemoteClient, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if _, err := url.ParseRequestURI(base); err != nil || base == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("invalid server base url %q", opts.BaseURL))
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
			Timeout: timeout,
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &RemoteClient{
		httpClient: client,
		baseURL:    base,
		csrfToken:  opts.CSRFToken,
		limiter:    limiter,
	}, nil
}

// RequestRegeneration posts export_id to the regeneration endpoint.
func (c *RemoteClient) RequestRegeneration(ctx context.Context, exportID string) (RegenerateResponse, error) {
	var out RegenerateResponse
	form := url.Values{"export_id": {exportID}}
	err := c.do(ctx, "regenerate", http.MethodPost, PathRegenerate, form, &out)
	return out, err
}

// ToggleAutoRebuild posts export_id and the current flag to the toggle endpoint.
func (c *RemoteClient) ToggleAutoRebuild(ctx context.Context, exportID string, current bool) (ToggleResponse, error) {
	var out ToggleResponse
	form := url.Values{
		"export_id":               {exportID},
		"is_auto_rebuild_enabled": {strconv.FormatBool(current)},
	}
	err := c.do(ctx, "toggle", http.MethodPost, PathToggle, form, &out)
	return out, err
}

// TaskProgress gets the progress of a record's task. A taskStatus that does
// not decode is reported as absent.
func (c *RemoteClient) TaskProgress(ctx context.Context, exportID string) (ProgressResponse, error) {
	var raw map[string]interface{}
	query := url.Values{"export_instance_id": {exportID}}
	if err := c.do(ctx, "task progress", http.MethodGet, PathProgress, query, &raw); err != nil {
		return ProgressResponse{}, err
	}
	return DecodeProgress(raw), nil
}

// ListExports gets the bootstrap descriptors. Both a bare array and an
// object with an "exports" array are accepted.
func (c *RemoteClient) ListExports(ctx context.Context) ([]map[string]interface{}, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list", http.MethodGet, PathList, nil, &raw); err != nil {
		return nil, err
	}
	var list []map[string]interface{}
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Exports []map[string]interface{} `json:"exports"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, errors.MalformedResponse("list", err)
	}
	return wrapped.Exports, nil
}

// BulkDownload posts the bulk form and drains the returned file.
func (c *RemoteClient) BulkDownload(ctx context.Context, form url.Values) (BulkDownloadResult, error) {
	resp, err := c.send(ctx, "bulk download", http.MethodPost, PathBulkDownload, form)
	if err != nil {
		return BulkDownloadResult{}, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return BulkDownloadResult{}, errors.Transport("bulk download", err)
	}

	result := BulkDownloadResult{Bytes: n}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		result.Filename = params["filename"]
	}
	var selected []json.RawMessage
	if err := json.Unmarshal([]byte(form.Get(BulkFormField)), &selected); err == nil {
		result.Exports = len(selected)
	}
	return result, nil
}

// Close cleans up any resources used by the client.
func (c *RemoteClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *RemoteClient) do(ctx context.Context, op, method, path string, params url.Values, out interface{}) error {
	resp, err := c.send(ctx, op, method, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.MalformedResponse(op, err)
	}
	return nil
}

func (c *RemoteClient) send(ctx context.Context, op, method, path string, params url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Transport(op, err)
	}

	target := c.baseURL + path
	var body io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			target += "?" + params.Encode()
		}
	} else if params != nil {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.csrfToken != "" {
		req.Header.Set("X-CSRFToken", c.csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Transport(op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.HTTPStatus(op, resp.StatusCode)
	}
	return resp, nil
}

// DecodeProgress reads a progress reply with weak typing, so "40" and 40.0
// both give 40. A missing or undecodable taskStatus yields a nil TaskStatus.
func DecodeProgress(raw map[string]interface{}) ProgressResponse {
	task, ok := raw["taskStatus"].(map[string]interface{})
	if !ok {
		return ProgressResponse{}
	}
	var status models.TaskStatus
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &status,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ProgressResponse{}
	}
	if err := decoder.Decode(task); err != nil {
		return ProgressResponse{}
	}
	status.Normalize()
	return ProgressResponse{TaskStatus: &status}
}

// Ensure RemoteClient implements Client interface.
var _ Client = (*RemoteClient)(nil)
