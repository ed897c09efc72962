// Package crowdin defines the port to the Crowdin API.
package crowdin

import (
	"context"

	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
)

// Client calls the Crowdin API on behalf of an access token. A missing
// remote object returns an error wrapping domain.ErrNotFound; a rejected
// token returns one wrapping domain.ErrUnauthorized.
type Client interface {
	ListProjects(ctx context.Context, accessToken string) ([]webhook.RemoteProject, error)
	GetProject(ctx context.Context, projectID int64, accessToken string) (*webhook.RemoteProject, error)
	CreateWebhook(ctx context.Context, req CreateWebhookRequest, accessToken string) (*webhook.RemoteWebhook, error)
	GetWebhook(ctx context.Context, projectID, webhookID int64, accessToken string) (*webhook.RemoteWebhook, error)
	DeleteWebhook(ctx context.Context, projectID, webhookID int64, accessToken string) error
	ListStringTranslations(ctx context.Context, req TranslationsRequest, accessToken string) ([]webhook.RemoteTranslation, error)
}

// CreateWebhookRequest registers a webhook calling URL for Events, authenticated with Secret.
type CreateWebhookRequest struct {
	ProjectID int64
	Name      string
	URL       string
	Secret    string
	Events    []string
}

// TranslationsRequest selects the translations of one source string in one language.
type TranslationsRequest struct {
	ProjectID  int64
	StringID   int64
	LanguageID string
}
