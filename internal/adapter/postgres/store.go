package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/port/database"
)

// Sealer protects credentials at rest.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(value string) (string, error)
}

// Store implements database.WebhookStore, rules.Service, identity.Mapper and
// identity.Manager on PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	sealer Sealer
}

// NewStore creates a Store. Hook secrets and access tokens pass through
// sealer on their way in and out.
func NewStore(pool *pgxpool.Pool, sealer Sealer) *Store {
	return &Store{pool: pool, sealer: sealer}
}

var _ database.WebhookStore = (*Store)(nil)

const webhookColumns = `id, webhook_id, project_id, project_name, triggers, enabled, secret, token,
	watched_by, watch_limited, watched_date, updated_date, refresh_date`

// --- Webhooks ---

func (s *Store) GetWebhookByProjectID(ctx context.Context, projectID int64) (*webhook.WebHook, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+webhookColumns+` FROM crowdin_webhooks WHERE project_id = $1`, projectID)
	h, err := s.scanWebhook(row)
	if err != nil {
		return nil, notFoundWrap(err, "get crowdin hook %d", projectID)
	}
	return &h, nil
}

func (s *Store) ListWebhooks(ctx context.Context, offset, limit int) ([]webhook.WebHook, error) {
	if offset < 0 {
		offset = 0
	}
	// LIMIT NULL means no limit.
	var lim *int
	if limit > 0 {
		lim = &limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+webhookColumns+` FROM crowdin_webhooks ORDER BY id OFFSET $1 LIMIT $2`, offset, lim)
	if err != nil {
		return nil, fmt.Errorf("list crowdin hooks: %w", err)
	}
	defer rows.Close()

	var hooks []webhook.WebHook
	for rows.Next() {
		h, err := s.scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan crowdin hook: %w", err)
		}
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}

func (s *Store) CountWebhooks(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM crowdin_webhooks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count crowdin hooks: %w", err)
	}
	return n, nil
}

func (s *Store) SaveWebhook(ctx context.Context, hook *webhook.WebHook) error {
	secret, token, err := s.sealCredentials(hook)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if hook.WatchedDate.IsZero() {
		hook.WatchedDate = now
	}
	if hook.UpdatedDate.IsZero() {
		hook.UpdatedDate = now
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO crowdin_webhooks (webhook_id, project_id, project_name, triggers, enabled, secret, token,
			watched_by, watch_limited, watched_date, updated_date, refresh_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		hook.WebhookID, hook.ProjectID, hook.ProjectName, pgTextArray(hook.Triggers), hook.Enabled, secret, token,
		hook.WatchedBy, hook.WatchLimit, hook.WatchedDate, hook.UpdatedDate, nullTime(hook.RefreshDate),
	).Scan(&hook.ID)
	if err != nil {
		return conflictWrap(err, "save crowdin hook %d", hook.ProjectID)
	}
	return nil
}

func (s *Store) UpdateWebhook(ctx context.Context, hook *webhook.WebHook) error {
	secret, token, err := s.sealCredentials(hook)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE crowdin_webhooks
		 SET webhook_id = $2, project_name = $3, triggers = $4, enabled = $5, secret = $6, token = $7,
			watch_limited = $8, updated_date = now(), refresh_date = $9
		 WHERE project_id = $1`,
		hook.ProjectID, hook.WebhookID, hook.ProjectName, pgTextArray(hook.Triggers), hook.Enabled, secret, token,
		hook.WatchLimit, nullTime(hook.RefreshDate))
	return execExpectOne(tag, err, "update crowdin hook %d", hook.ProjectID)
}

func (s *Store) SetWatchLimit(ctx context.Context, projectID int64, enabled bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE crowdin_webhooks SET watch_limited = $2, updated_date = now() WHERE project_id = $1`,
		projectID, enabled)
	return execExpectOne(tag, err, "set watch limit of crowdin hook %d", projectID)
}

func (s *Store) DeleteWebhook(ctx context.Context, projectID int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM crowdin_webhooks WHERE project_id = $1`, projectID)
	return execExpectOne(tag, err, "delete crowdin hook %d", projectID)
}

func (s *Store) sealCredentials(hook *webhook.WebHook) (secret, token string, err error) {
	if secret, err = s.sealer.Seal(hook.Secret); err != nil {
		return "", "", fmt.Errorf("seal hook secret: %w", err)
	}
	if token, err = s.sealer.Seal(hook.Token); err != nil {
		return "", "", fmt.Errorf("seal access token: %w", err)
	}
	return secret, token, nil
}

func (s *Store) scanWebhook(row scannable) (webhook.WebHook, error) {
	var (
		h             webhook.WebHook
		secret, token string
		refreshDate   *time.Time
	)
	err := row.Scan(&h.ID, &h.WebhookID, &h.ProjectID, &h.ProjectName, &h.Triggers, &h.Enabled, &secret, &token,
		&h.WatchedBy, &h.WatchLimit, &h.WatchedDate, &h.UpdatedDate, &refreshDate)
	if err != nil {
		return h, err
	}
	if refreshDate != nil {
		h.RefreshDate = *refreshDate
	}
	if h.Secret, err = s.sealer.Open(secret); err != nil {
		return h, fmt.Errorf("open secret of crowdin hook %d: %w", h.ProjectID, err)
	}
	if h.Token, err = s.sealer.Open(token); err != nil {
		return h, fmt.Errorf("open token of crowdin hook %d: %w", h.ProjectID, err)
	}
	return h, nil
}
