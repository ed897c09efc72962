// Package database defines the webhook store port (interface).
package database

import (
	"context"

	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
)

// WebhookStore persists WebHook records. Lookups of a missing record return
// an error wrapping domain.ErrNotFound; saving a second record for a project
// returns one wrapping domain.ErrAlreadyExists.
type WebhookStore interface {
	GetWebhookByProjectID(ctx context.Context, projectID int64) (*webhook.WebHook, error)
	ListWebhooks(ctx context.Context, offset, limit int) ([]webhook.WebHook, error)
	CountWebhooks(ctx context.Context) (int, error)
	SaveWebhook(ctx context.Context, hook *webhook.WebHook) error
	UpdateWebhook(ctx context.Context, hook *webhook.WebHook) error
	SetWatchLimit(ctx context.Context, projectID int64, enabled bool) error
	DeleteWebhook(ctx context.Context, projectID int64) error
}
