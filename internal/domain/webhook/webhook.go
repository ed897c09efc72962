// Package webhook defines the Crowdin webhook subscription and the remote
// objects read through the Crowdin API.
package webhook

import "time"

// ConnectorName identifies this connector in username mappings and rule filters.
const ConnectorName = "crowdin"

// Triggers is the ordered catalogue of Crowdin events every webhook subscribes to.
var Triggers = []string{
	"file.added", "file.updated", "file.reverted", "file.deleted", "file.translated", "file.approved",
	"project.translated", "project.approved", "project.built",
	"translation.updated",
	"string.added", "string.updated", "string.deleted",
	"stringComment.created", "stringComment.updated", "stringComment.deleted", "stringComment.restored",
	"suggestion.added", "suggestion.updated", "suggestion.deleted", "suggestion.approved", "suggestion.disapproved",
	"task.added", "task.statusChanged", "task.deleted",
}

// WebHook binds a Crowdin project to the secret authenticating its inbound calls.
// At most one WebHook exists per ProjectID.
type WebHook struct {
	ID          int64     `json:"id"`
	WebhookID   int64     `json:"webhookId"` // remote webhook id on Crowdin
	ProjectID   int64     `json:"projectId"`
	ProjectName string    `json:"projectName"`
	Triggers    []string  `json:"triggers"`
	Enabled     bool      `json:"enabled"`
	Secret      string    `json:"-"`
	Token       string    `json:"-"` // Crowdin access token, plaintext in memory only
	WatchedBy   string    `json:"watchedBy"`
	WatchLimit  bool      `json:"watchLimited"`
	WatchedDate time.Time `json:"watchedDate"`
	UpdatedDate time.Time `json:"updatedDate"`
	RefreshDate time.Time `json:"refreshDate"`
}

// RemoteProject is the read-through view of a Crowdin project.
type RemoteProject struct {
	ID          int64  `json:"id"`
	Identifier  string `json:"identifier"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatarUrl"`
}

// RemoteWebhook is the webhook registration as Crowdin reports it.
type RemoteWebhook struct {
	ID        int64    `json:"id"`
	ProjectID int64    `json:"projectId"`
	URL       string   `json:"url"`
	Events    []string `json:"events"`
	IsActive  bool     `json:"isActive"`
}

// RemoteTranslation is one translation of a source string, as listed by Crowdin.
// It lets an approval be credited to the translation's original author.
type RemoteTranslation struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Details is a WebHook enriched with its remote project, as shown to managers.
type Details struct {
	WebHook
	Identifier  string `json:"identifier,omitempty"`
	Description string `json:"description,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}
