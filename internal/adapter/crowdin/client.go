// Package crowdin implements crowdin.Client against the Crowdin REST API v2.
package crowdin

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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"

	cfotel "github.com/Strob0t/crowdin-gamification/internal/adapter/otel"
	"github.com/Strob0t/crowdin-gamification/internal/domain"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/port/crowdin"
	"github.com/Strob0t/crowdin-gamification/internal/resilience"
)

// pageSize is the largest page Crowdin serves.
const pageSize = 500

// Client calls Crowdin with the access token of each request.
type Client struct {
	baseURL string
	base    http.RoundTripper
	timeout time.Duration
	breaker *resilience.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithBreaker routes every call through b.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// NewClient creates a Client for baseURL, e.g. https://api.crowdin.com/api/v2.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		base:    cfotel.Transport(http.DefaultTransport),
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ crowdin.Client = (*Client)(nil)

// IsRemoteFailure reports whether err says something about Crowdin's health.
// Rejected tokens and missing objects do not.
func IsRemoteFailure(err error) bool {
	return err != nil && !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrUnauthorized) && !errors.Is(err, domain.ErrValidation)
}

// Crowdin wraps every resource in {"data": ...}; lists wrap each element too.
type envelope[T any] struct {
	Data T `json:"data"`
}

type project struct {
	ID          int64  `json:"id"`
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
}

func (p project) toDomain() webhook.RemoteProject {
	return webhook.RemoteProject{
		ID:          p.ID,
		Identifier:  p.Identifier,
		Name:        p.Name,
		Description: p.Description,
		AvatarURL:   p.Logo,
	}
}

type remoteHook struct {
	ID        int64    `json:"id"`
	ProjectID int64    `json:"projectId"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	IsActive  bool     `json:"isActive"`
}

func (h remoteHook) toDomain() webhook.RemoteWebhook {
	return webhook.RemoteWebhook{ID: h.ID, ProjectID: h.ProjectID, URL: h.URL, Events: h.Events, IsActive: h.IsActive}
}

type createHookBody struct {
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	Events          []string          `json:"events"`
	RequestType     string            `json:"requestType"`
	IsActive        bool              `json:"isActive"`
	BatchingEnabled bool              `json:"batchingEnabled"`
	ContentType     string            `json:"contentType"`
	Headers         map[string]string `json:"headers"`
}

type translation struct {
	ID   int64 `json:"id"`
	User struct {
		Username string `json:"username"`
	} `json:"user"`
}

// ListProjects returns every project the token can manage.
func (c *Client) ListProjects(ctx context.Context, accessToken string) ([]webhook.RemoteProject, error) {
	var out []webhook.RemoteProject
	for offset := 0; ; offset += pageSize {
		q := url.Values{"limit": {strconv.Itoa(pageSize)}, "offset": {strconv.Itoa(offset)}, "hasManagerAccess": {"1"}}
		var page envelope[[]envelope[project]]
		if err := c.do(ctx, "list_projects", http.MethodGet, "/projects?"+q.Encode(), accessToken, nil, &page); err != nil {
			return nil, fmt.Errorf("crowdin list projects: %w", err)
		}
		for _, p := range page.Data {
			out = append(out, p.Data.toDomain())
		}
		if len(page.Data) < pageSize {
			return out, nil
		}
	}
}

// GetProject returns one project.
func (c *Client) GetProject(ctx context.Context, projectID int64, accessToken string) (*webhook.RemoteProject, error) {
	var resp envelope[project]
	if err := c.do(ctx, "get_project", http.MethodGet, projectPath(projectID), accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("crowdin get project %d: %w", projectID, err)
	}
	p := resp.Data.toDomain()
	return &p, nil
}

// CreateWebhook registers a webhook. Crowdin sends the secret back as a
// bearer token on every delivery.
func (c *Client) CreateWebhook(ctx context.Context, req crowdin.CreateWebhookRequest, accessToken string) (*webhook.RemoteWebhook, error) {
	body := createHookBody{
		Name:            req.Name,
		URL:             req.URL,
		Events:          req.Events,
		RequestType:     http.MethodPost,
		IsActive:        true,
		BatchingEnabled: true,
		ContentType:     "application/json",
		Headers:         map[string]string{"Authorization": "Bearer " + req.Secret},
	}
	var resp envelope[remoteHook]
	if err := c.do(ctx, "create_webhook", http.MethodPost, projectPath(req.ProjectID)+"/webhooks", accessToken, body, &resp); err != nil {
		return nil, fmt.Errorf("crowdin create webhook for project %d: %w", req.ProjectID, err)
	}
	h := resp.Data.toDomain()
	return &h, nil
}

// GetWebhook returns one webhook of a project.
func (c *Client) GetWebhook(ctx context.Context, projectID, webhookID int64, accessToken string) (*webhook.RemoteWebhook, error) {
	var resp envelope[remoteHook]
	if err := c.do(ctx, "get_webhook", http.MethodGet, webhookPath(projectID, webhookID), accessToken, nil, &resp); err != nil {
		return nil, fmt.Errorf("crowdin get webhook %d: %w", webhookID, err)
	}
	h := resp.Data.toDomain()
	return &h, nil
}

// DeleteWebhook removes one webhook of a project.
func (c *Client) DeleteWebhook(ctx context.Context, projectID, webhookID int64, accessToken string) error {
	if err := c.do(ctx, "delete_webhook", http.MethodDelete, webhookPath(projectID, webhookID), accessToken, nil, nil); err != nil {
		return fmt.Errorf("crowdin delete webhook %d: %w", webhookID, err)
	}
	return nil
}

// ListStringTranslations returns the translations of a source string.
func (c *Client) ListStringTranslations(ctx context.Context, req crowdin.TranslationsRequest, accessToken string) ([]webhook.RemoteTranslation, error) {
	var out []webhook.RemoteTranslation
	for offset := 0; ; offset += pageSize {
		q := url.Values{
			"stringId": {strconv.FormatInt(req.StringID, 10)},
			"limit":    {strconv.Itoa(pageSize)},
			"offset":   {strconv.Itoa(offset)},
		}
		if req.LanguageID != "" {
			q.Set("languageId", req.LanguageID)
		}
		var page envelope[[]envelope[translation]]
		if err := c.do(ctx, "list_translations", http.MethodGet, projectPath(req.ProjectID)+"/translations?"+q.Encode(), accessToken, nil, &page); err != nil {
			return nil, fmt.Errorf("crowdin list translations of string %d: %w", req.StringID, err)
		}
		for _, t := range page.Data {
			out = append(out, webhook.RemoteTranslation{ID: t.Data.ID, Username: t.Data.User.Username})
		}
		if len(page.Data) < pageSize {
			return out, nil
		}
	}
}

func (c *Client) do(ctx context.Context, operation, method, path, accessToken string, in, out any) error {
	ctx, span := cfotel.StartCrowdinSpan(ctx, operation)
	defer span.End()

	call := func(ctx context.Context) error {
		return c.roundTrip(ctx, method, path, accessToken, in, out)
	}
	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("http.method", method))
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path, accessToken string, in, out any) error {
	if accessToken == "" {
		return fmt.Errorf("%w: crowdin access token is required", domain.ErrUnauthorized)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := &http.Client{Transport: &oauth2.Transport{
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
		Base:   c.base,
	}}
	resp, err := httpClient.Do(req) //nolint:gosec // URL is built from the configured API base
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := statusError(resp.StatusCode, respBody); err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("crowdin parse response: %w", err)
	}
	return nil
}

func statusError(status int, body []byte) error {
	if status < 400 {
		return nil
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%w: crowdin API 404: %s", domain.ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: crowdin API %d: %s", domain.ErrUnauthorized, status, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: crowdin API %d: %s", domain.ErrValidation, status, msg)
	}
	return fmt.Errorf("crowdin API %d: %s", status, msg)
}

func projectPath(projectID int64) string {
	return "/projects/" + strconv.FormatInt(projectID, 10)
}

func webhookPath(projectID, webhookID int64) string {
	return projectPath(projectID) + "/webhooks/" + strconv.FormatInt(webhookID, 10)
}
