// Package importclient talks to a tulip server. Client implements
// importer.Store over the batch endpoints so a local pipeline can parse the
// export and push it batch by batch, and it can hand a whole file to the
// synchronous upload endpoint.
package importclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/importer"
	"github.com/Ramsey-B/tulip/pkg/middleware"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/routes/imports"
	"github.com/Ramsey-B/tulip/pkg/tracing"
)

const (
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxResponseSize caps response bodies (10MB).
	DefaultMaxResponseSize = 10 * 1024 * 1024

	importsPath = "/api/v1/imports"
)

type Config struct {
	BaseURL string
	// UserID and Role are sent as identity headers, for servers running
	// without token authentication.
	UserID          string
	Role            string
	BearerToken     string
	Timeout         time.Duration
	MaxResponseSize int64
}

type Client struct {
	baseURL string
	cfg     Config
	http    *http.Client
	logger  ectologger.Logger
}

var _ importer.Store = (*Client)(nil)

func New(cfg Config, logger ectologger.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseSize <= 0 {
		cfg.MaxResponseSize = DefaultMaxResponseSize
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

// Begin opens a replace-all session. Diffs are never sent; reconciling
// imports go through Upload so the server diffs against its own store.
func (c *Client) Begin(ctx context.Context, req importer.BeginRequest) (*importer.Session, error) {
	ctx, span := tracing.StartSpan(ctx, "importclient.Begin")
	defer span.End()

	if req.Strategy == models.ReconcileAndLog {
		return nil, fmt.Errorf("batch protocol cannot reconcile %s, use the upload endpoint", req.Entity)
	}

	var resp imports.StartResponse
	if err := c.postJSON(ctx, req.Entity, "start", imports.StartRequest{FileName: req.FileName}, &resp); err != nil {
		return nil, err
	}
	return &importer.Session{ID: resp.SyncID, Entity: req.Entity, StartedAt: resp.StartedAt}, nil
}

func (c *Client) SendBatch(ctx context.Context, session *importer.Session, batch models.Dataset, n int) error {
	ctx, span := tracing.StartSpan(ctx, "importclient.SendBatch")
	defer span.End()

	body := imports.BatchRequest{
		SyncID:    session.ID,
		Batch:     n,
		Records:   batch.Relaties,
		Polissen:  batch.Polissen,
		Dekkingen: batch.Dekkingen,
		Pakketten: batch.Pakketten,
	}
	var resp imports.BatchResponse
	return c.postJSON(ctx, session.Entity, "batch", body, &resp)
}

func (c *Client) Finish(ctx context.Context, session *importer.Session, done importer.Completion) error {
	ctx, span := tracing.StartSpan(ctx, "importclient.Finish")
	defer span.End()

	body := imports.FinishRequest{
		SyncID:         session.ID,
		TotalRecords:   done.Records,
		TotalDekkingen: done.Dekkingen,
		TotalPakketten: done.Pakketten,
		FileName:       done.FileName,
		DuurSeconden:   done.DuurSeconden,
	}
	var resp imports.StatusResponse
	return c.postJSON(ctx, session.Entity, "finish", body, &resp)
}

func (c *Client) Fail(ctx context.Context, session *importer.Session, reason string, duurSeconden float64) error {
	ctx, span := tracing.StartSpan(ctx, "importclient.Fail")
	defer span.End()

	body := imports.FailRequest{SyncID: session.ID, Error: reason, DuurSeconden: duurSeconden}
	var resp imports.StatusResponse
	return c.postJSON(ctx, session.Entity, "fail", body, &resp)
}

// Upload sends the whole file to the synchronous endpoint. The result is
// returned for failed imports too, next to the error.
func (c *Client) Upload(ctx context.Context, entity models.EntityType, fileName string, file io.Reader, strategy models.ImportStrategy) (*importer.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "importclient.Upload")
	defer span.End()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("fileName", fileName); err != nil {
		return nil, err
	}
	if strategy != "" {
		if err := w.WriteField("strategy", string(strategy)); err != nil {
			return nil, err
		}
	}
	part, err := w.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileName, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.url(entity, ""), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	status, payload, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var res importer.Result
	if jerr := json.Unmarshal(payload, &res); jerr != nil || (status >= http.StatusBadRequest && res.Error == "") {
		return nil, decodeError(status, payload)
	}
	if status >= http.StatusBadRequest {
		return &res, httperror.NewHTTPError(status, res.Error)
	}
	return &res, nil
}

func (c *Client) postJSON(ctx context.Context, entity models.EntityType, action string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", action, err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.url(entity, action), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	status, payload, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if status >= http.StatusBadRequest {
		return decodeError(status, payload)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}
	if c.cfg.UserID != "" {
		req.Header.Set(middleware.HeaderUserID, c.cfg.UserID)
	}
	if c.cfg.Role != "" {
		req.Header.Set(middleware.HeaderUserRole, c.cfg.Role)
	}

	headers := map[string]string{}
	tracing.Inject(ctx, headers)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, req *http.Request) (int, []byte, error) {
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Errorf("HTTP request failed: %s %s", req.Method, req.URL.String())
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.ContentLength > c.cfg.MaxResponseSize {
		return 0, nil, fmt.Errorf("response too large: %d bytes (max %d)", resp.ContentLength, c.cfg.MaxResponseSize)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseSize+1))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxResponseSize {
		return 0, nil, fmt.Errorf("response body too large: %d bytes (max %d)", len(body), c.cfg.MaxResponseSize)
	}

	c.logger.WithContext(ctx).Debugf("HTTP %s %s -> %d (%s)", req.Method, req.URL.String(), resp.StatusCode, time.Since(start))
	return resp.StatusCode, body, nil
}

func (c *Client) url(entity models.EntityType, action string) string {
	u := c.baseURL + importsPath + "/" + entity.Slug()
	if action != "" {
		u += "/" + action
	}
	return u
}

// decodeError turns a server error body back into an HTTPError with the
// same status, message and meta.
func decodeError(status int, payload []byte) error {
	var body middleware.ErrorResponse
	if err := json.Unmarshal(payload, &body); err != nil || body.Message == "" {
		msg := strings.TrimSpace(string(payload))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return httperror.NewHTTPError(status, msg)
	}

	herr := httperror.NewHTTPError(status, body.Message)
	for k, v := range body.Meta {
		herr = herr.AddMetaValue(k, fmt.Sprint(v))
	}
	return herr
}
