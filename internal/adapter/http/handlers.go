package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/middleware"
	"github.com/Strob0t/crowdin-gamification/internal/service"
)

// TriggerEnqueuer accepts raw Crowdin deliveries for asynchronous dispatch.
type TriggerEnqueuer interface {
	EnqueueTrigger(ctx context.Context, authorization string, body []byte) (string, error)
}

// HookManager is the webhook lifecycle seen by managers.
type HookManager interface {
	ListRemoteProjects(ctx context.Context, accessToken string) ([]webhook.RemoteProject, error)
	CreateWebhook(ctx context.Context, req service.CreateWebhookRequest, currentUser string) (*webhook.WebHook, error)
	GetWebhook(ctx context.Context, projectID int64, currentUser string) (*webhook.Details, error)
	ListWebhooks(ctx context.Context, currentUser string, offset, limit int, forceUpdate bool) ([]webhook.Details, error)
	CountWebhooks(ctx context.Context, currentUser string, forceUpdate bool) (int, error)
	DeleteWebhook(ctx context.Context, projectID int64, currentUser string) error
	ForceUpdateWebhooks(ctx context.Context) error
	SetWatchLimit(ctx context.Context, projectID int64, enabled bool, currentUser string) error
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handlers holds the HTTP handlers of the connector.
type Handlers struct {
	Triggers     TriggerEnqueuer
	Hooks        HookManager
	Health       map[string]HealthCheck
	MaxJSONBytes int64
}

const defaultMaxJSONBytes = 64 << 10

func (h *Handlers) jsonLimit() int64 {
	if h.MaxJSONBytes > 0 {
		return h.MaxJSONBytes
	}
	return defaultMaxJSONBytes
}

// HandleCrowdinWebhook accepts a Crowdin delivery and queues it.
// The body limit is applied by middleware.WebhookBody.
func (h *Handlers) HandleCrowdinWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	deliveryID, err := h.Triggers.EnqueueTrigger(r.Context(), r.Header.Get("Authorization"), body)
	if err != nil {
		writeDomainError(w, err, "delivery rejected")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "deliveryId": deliveryID})
}

type hookPage struct {
	Hooks []webhook.Details `json:"hooks"`
	Size  *int              `json:"size,omitempty"`
}

// ListHooks handles GET /api/v1/crowdin/hooks.
func (h *Handlers) ListHooks(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)
	forceUpdate := queryBool(r, "forceUpdate")

	hooks, err := h.Hooks.ListWebhooks(r.Context(), user, offset, limit, forceUpdate)
	if err != nil {
		writeDomainError(w, err, "hooks not found")
		return
	}
	page := hookPage{Hooks: hooks}
	if queryBool(r, "returnSize") {
		// The list call already refreshed when forced.
		n, err := h.Hooks.CountWebhooks(r.Context(), user, false)
		if err != nil {
			writeDomainError(w, err, "hooks not found")
			return
		}
		page.Size = &n
	}
	writeJSON(w, http.StatusOK, page)
}

// GetHook handles GET /api/v1/crowdin/hooks/{projectId}.
func (h *Handlers) GetHook(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	d, err := h.Hooks.GetWebhook(r.Context(), projectID, middleware.UserFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err, "crowdin hook not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// ListRemoteProjects handles GET /api/v1/crowdin/projects?accessToken=.
func (h *Handlers) ListRemoteProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Hooks.ListRemoteProjects(r.Context(), r.URL.Query().Get("accessToken"))
	if err != nil {
		writeDomainError(w, err, "crowdin projects not found")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// CreateHook handles POST /api/v1/crowdin/hooks.
func (h *Handlers) CreateHook(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[service.CreateWebhookRequest](w, r, h.jsonLimit())
	if !ok {
		return
	}
	hook, err := h.Hooks.CreateWebhook(r.Context(), req, middleware.UserFromContext(r.Context()))
	if err != nil {
		writeDomainError(w, err, "crowdin project not found")
		return
	}
	writeJSON(w, http.StatusCreated, hook)
}

// DeleteHook handles DELETE /api/v1/crowdin/hooks/{projectId}.
func (h *Handlers) DeleteHook(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Hooks.DeleteWebhook(r.Context(), projectID, middleware.UserFromContext(r.Context())); err != nil {
		writeDomainError(w, err, "crowdin hook not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshHooks handles POST /api/v1/crowdin/hooks/refresh.
func (h *Handlers) RefreshHooks(w http.ResponseWriter, r *http.Request) {
	if err := h.Hooks.ForceUpdateWebhooks(r.Context()); err != nil {
		writeDomainError(w, err, "crowdin hook not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

type watchLimitRequest struct {
	Enabled bool `json:"enabled"`
}

// SetWatchLimit handles PUT /api/v1/crowdin/hooks/{projectId}/watch-limit.
func (h *Handlers) SetWatchLimit(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[watchLimitRequest](w, r, h.jsonLimit())
	if !ok {
		return
	}
	if err := h.Hooks.SetWatchLimit(r.Context(), projectID, req.Enabled, middleware.UserFromContext(r.Context())); err != nil {
		writeDomainError(w, err, "crowdin hook not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projectId": projectID, "watchLimited": req.Enabled})
}

// HealthStatus handles GET /health. Every check runs with a short timeout;
// any failure turns the response into a 503.
func (h *Handlers) HealthStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.Health))
	for name, check := range h.Health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": checks})
}
