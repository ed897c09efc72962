package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	cfotel "github.com/Strob0t/crowdin-gamification/internal/adapter/otel"
	"github.com/Strob0t/crowdin-gamification/internal/domain"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/port/cache"
	"github.com/Strob0t/crowdin-gamification/internal/port/crowdin"
	"github.com/Strob0t/crowdin-gamification/internal/port/database"
	"github.com/Strob0t/crowdin-gamification/internal/port/rules"
)

const (
	projectCachePrefix = "crowdin:project:"
	webhookName        = "Gamification connector"
)

// CreateWebhookRequest asks to watch a Crowdin project.
type CreateWebhookRequest struct {
	ProjectID   int64  `json:"projectId"`
	ProjectName string `json:"projectName"`
	AccessToken string `json:"accessToken"`
}

// WebhookOptions configures a WebhookService.
type WebhookOptions struct {
	CallbackURL    string
	SecretLength   int
	ProjectTTL     time.Duration
	RefreshWorkers int
}

// WebhookService manages the Crowdin webhook of each watched project.
type WebhookService struct {
	store   database.WebhookStore
	remote  crowdin.Client
	rules   rules.Service
	roles   RoleChecker
	cache   cache.Cache
	opts    WebhookOptions
	metrics *cfotel.Metrics
	now     func() time.Time
}

// NewWebhookService creates a WebhookService.
func NewWebhookService(store database.WebhookStore, remote crowdin.Client, ruleSvc rules.Service, roles RoleChecker, c cache.Cache, opts WebhookOptions) *WebhookService {
	if opts.SecretLength < 8 {
		opts.SecretLength = 8
	}
	if opts.RefreshWorkers < 1 {
		opts.RefreshWorkers = 1
	}
	return &WebhookService{
		store:  store,
		remote: remote,
		rules:  ruleSvc,
		roles:  roles,
		cache:  c,
		opts:   opts,
		now:    time.Now,
	}
}

// SetMetrics enables metric recording.
func (s *WebhookService) SetMetrics(m *cfotel.Metrics) {
	s.metrics = m
}

func (s *WebhookService) authorize(currentUser, action string) error {
	if !s.roles.IsRewardingManager(currentUser) {
		return fmt.Errorf("%w: user %q may not %s crowdin hooks", domain.ErrUnauthorized, currentUser, action)
	}
	return nil
}

func (s *WebhookService) record(ctx context.Context, operation string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.HookLifecycle.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("result", result),
	))
}

// ListRemoteProjects returns the Crowdin projects visible to accessToken.
func (s *WebhookService) ListRemoteProjects(ctx context.Context, accessToken string) ([]webhook.RemoteProject, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: access token is required", domain.ErrValidation)
	}
	projects, err := s.remote.ListProjects(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("list crowdin projects: %w", err)
	}
	return projects, nil
}

// CreateWebhook registers a Crowdin webhook for the project and stores it.
// A project has at most one webhook: a second request fails with
// domain.ErrAlreadyExists.
func (s *WebhookService) CreateWebhook(ctx context.Context, req CreateWebhookRequest, currentUser string) (hook *webhook.WebHook, err error) {
	defer func() { s.record(ctx, "create", err) }()

	if err := s.authorize(currentUser, "create"); err != nil {
		return nil, err
	}
	if req.ProjectID <= 0 || req.AccessToken == "" {
		return nil, fmt.Errorf("%w: project id and access token are required", domain.ErrValidation)
	}

	existing, err := s.store.GetWebhookByProjectID(ctx, req.ProjectID)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("crowdin hook for project %d: %w", req.ProjectID, domain.ErrAlreadyExists)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("check existing hook: %w", err)
	}

	project, err := s.remote.GetProject(ctx, req.ProjectID, req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("crowdin project %d: %w", req.ProjectID, err)
	}
	if req.ProjectName == "" {
		req.ProjectName = project.Name
	}

	secret, err := GenerateSecret(s.opts.SecretLength)
	if err != nil {
		return nil, err
	}

	remote, err := s.remote.CreateWebhook(ctx, crowdin.CreateWebhookRequest{
		ProjectID: req.ProjectID,
		Name:      webhookName,
		URL:       s.opts.CallbackURL,
		Secret:    secret,
		Events:    webhook.Triggers,
	}, req.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("create crowdin webhook: %w", err)
	}

	now := s.now().UTC()
	hook = &webhook.WebHook{
		WebhookID:   remote.ID,
		ProjectID:   req.ProjectID,
		ProjectName: req.ProjectName,
		Triggers:    remote.Events,
		Enabled:     remote.IsActive,
		Secret:      secret,
		Token:       req.AccessToken,
		WatchedBy:   currentUser,
		WatchedDate: now,
		UpdatedDate: now,
		RefreshDate: now,
	}
	if err := s.store.SaveWebhook(ctx, hook); err != nil {
		// Another request won the race; do not leave an orphan on Crowdin.
		if delErr := s.remote.DeleteWebhook(ctx, req.ProjectID, remote.ID, req.AccessToken); delErr != nil {
			slog.Error("delete orphan crowdin webhook", "project_id", req.ProjectID, "webhook_id", remote.ID, "error", delErr)
		}
		return nil, fmt.Errorf("save crowdin hook: %w", err)
	}

	slog.Info("crowdin hook created", "project_id", hook.ProjectID, "webhook_id", hook.WebhookID, "user", currentUser)
	return hook, nil
}

// GetWebhook returns the hook of a project with its remote details.
func (s *WebhookService) GetWebhook(ctx context.Context, projectID int64, currentUser string) (*webhook.Details, error) {
	if err := s.authorize(currentUser, "access"); err != nil {
		return nil, err
	}
	hook, err := s.store.GetWebhookByProjectID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get crowdin hook %d: %w", projectID, err)
	}
	d := s.details(ctx, hook)
	return &d, nil
}

// ListWebhooks returns a page of hooks. forceUpdate refreshes every hook
// against Crowdin first.
func (s *WebhookService) ListWebhooks(ctx context.Context, currentUser string, offset, limit int, forceUpdate bool) ([]webhook.Details, error) {
	if err := s.authorize(currentUser, "access"); err != nil {
		return nil, err
	}
	if forceUpdate {
		if err := s.ForceUpdateWebhooks(ctx); err != nil {
			slog.Warn("force update crowdin hooks", "error", err)
		}
	}
	hooks, err := s.store.ListWebhooks(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list crowdin hooks: %w", err)
	}
	out := make([]webhook.Details, 0, len(hooks))
	for i := range hooks {
		out = append(out, s.details(ctx, &hooks[i]))
	}
	return out, nil
}

// CountWebhooks returns the number of stored hooks.
func (s *WebhookService) CountWebhooks(ctx context.Context, currentUser string, forceUpdate bool) (int, error) {
	if err := s.authorize(currentUser, "access"); err != nil {
		return 0, err
	}
	if forceUpdate {
		if err := s.ForceUpdateWebhooks(ctx); err != nil {
			slog.Warn("force update crowdin hooks", "error", err)
		}
	}
	n, err := s.store.CountWebhooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("count crowdin hooks: %w", err)
	}
	return n, nil
}

// DeleteWebhook removes the project's webhook on Crowdin, then every
// gamification rule bound to the project, then the local record. The record
// goes last so a failed call can be retried; rules left behind by an
// interrupted delete are removed even when the record is already gone.
func (s *WebhookService) DeleteWebhook(ctx context.Context, projectID int64, currentUser string) (err error) {
	defer func() { s.record(ctx, "delete", err) }()

	if err := s.authorize(currentUser, "delete"); err != nil {
		return err
	}
	hook, err := s.store.GetWebhookByProjectID(ctx, projectID)
	if errors.Is(err, domain.ErrNotFound) {
		if removed, rerr := s.deleteProjectRules(ctx, projectID); rerr != nil {
			slog.Warn("delete rules of unwatched project", "project_id", projectID, "error", rerr)
		} else if removed > 0 {
			slog.Info("orphaned crowdin rules deleted", "project_id", projectID, "rules_deleted", removed)
		}
	}
	if err != nil {
		return fmt.Errorf("crowdin hook for project %d: %w", projectID, err)
	}

	err = s.remote.DeleteWebhook(ctx, hook.ProjectID, hook.WebhookID, hook.Token)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		slog.Warn("crowdin webhook already gone remotely", "project_id", projectID, "webhook_id", hook.WebhookID)
	case err != nil:
		return fmt.Errorf("delete crowdin webhook: %w", err)
	}

	removed, err := s.deleteProjectRules(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteWebhook(ctx, projectID); err != nil {
		return fmt.Errorf("delete crowdin hook: %w", err)
	}
	if err := s.cache.Delete(ctx, projectCacheKey(projectID)); err != nil {
		slog.Warn("evict crowdin project", "project_id", projectID, "error", err)
	}

	slog.Info("crowdin hook deleted", "project_id", projectID, "rules_deleted", removed, "user", currentUser)
	return nil
}

func (s *WebhookService) deleteProjectRules(ctx context.Context, projectID int64) (int, error) {
	removed, err := s.rules.DeleteRulesByProject(ctx, strconv.FormatInt(projectID, 10))
	if err != nil {
		return 0, fmt.Errorf("delete rules of project %d: %w", projectID, err)
	}
	return removed, nil
}

// ForceUpdateWebhooks drops cached remote projects and resynchronizes every
// hook with Crowdin. A hook deleted on Crowdin is registered again with its
// stored secret.
func (s *WebhookService) ForceUpdateWebhooks(ctx context.Context) (err error) {
	defer func() { s.record(ctx, "refresh", err) }()

	if err := s.cache.Clear(ctx); err != nil {
		slog.Warn("clear crowdin cache", "error", err)
	}
	hooks, err := s.store.ListWebhooks(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("list crowdin hooks: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.RefreshWorkers)
	errs := make([]error, len(hooks))
	for i := range hooks {
		hook := &hooks[i]
		g.Go(func() error {
			// Failures are collected so one bad token does not cancel the others.
			errs[i] = s.refreshWebhook(gctx, hook)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (s *WebhookService) refreshWebhook(ctx context.Context, hook *webhook.WebHook) error {
	remote, err := s.remote.GetWebhook(ctx, hook.ProjectID, hook.WebhookID, hook.Token)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Info("crowdin webhook missing remotely, registering again", "project_id", hook.ProjectID)
		remote, err = s.remote.CreateWebhook(ctx, crowdin.CreateWebhookRequest{
			ProjectID: hook.ProjectID,
			Name:      webhookName,
			URL:       s.opts.CallbackURL,
			Secret:    hook.Secret,
			Events:    webhook.Triggers,
		}, hook.Token)
	}
	if err != nil {
		return fmt.Errorf("refresh hook of project %d: %w", hook.ProjectID, err)
	}

	now := s.now().UTC()
	hook.WebhookID = remote.ID
	hook.Triggers = remote.Events
	hook.Enabled = remote.IsActive
	hook.RefreshDate = now
	hook.UpdatedDate = now
	if err := s.store.UpdateWebhook(ctx, hook); err != nil {
		return fmt.Errorf("update hook of project %d: %w", hook.ProjectID, err)
	}
	return nil
}

// SetWatchLimit turns the watch limit of a project on or off.
func (s *WebhookService) SetWatchLimit(ctx context.Context, projectID int64, enabled bool, currentUser string) error {
	if err := s.authorize(currentUser, "update"); err != nil {
		return err
	}
	if err := s.store.SetWatchLimit(ctx, projectID, enabled); err != nil {
		return fmt.Errorf("set watch limit of project %d: %w", projectID, err)
	}
	return nil
}

// IsWatchLimitEnabled reports the watch limit of a project. Unknown projects are unlimited.
func (s *WebhookService) IsWatchLimitEnabled(ctx context.Context, projectID int64) (bool, error) {
	hook, err := s.store.GetWebhookByProjectID(ctx, projectID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return hook.WatchLimit, nil
}

func (s *WebhookService) details(ctx context.Context, hook *webhook.WebHook) webhook.Details {
	d := webhook.Details{WebHook: *hook}
	project, err := s.remoteProject(ctx, hook)
	if err != nil {
		slog.Warn("load crowdin project", "project_id", hook.ProjectID, "error", err)
		return d
	}
	d.Identifier = project.Identifier
	d.Description = project.Description
	d.AvatarURL = project.AvatarURL
	return d
}

// remoteProject reads a project through the cache.
func (s *WebhookService) remoteProject(ctx context.Context, hook *webhook.WebHook) (*webhook.RemoteProject, error) {
	key := projectCacheKey(hook.ProjectID)
	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var p webhook.RemoteProject
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.remote.GetProject(ctx, hook.ProjectID, hook.Token)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(p); err == nil {
		if err := s.cache.Set(ctx, key, data, s.opts.ProjectTTL); err != nil {
			slog.Debug("cache crowdin project", "error", err)
		}
	}
	return p, nil
}

func projectCacheKey(projectID int64) string {
	return projectCachePrefix + strconv.FormatInt(projectID, 10)
}
