// Package trigger translates Crowdin webhook sub-events into normalized
// gamification events. Each Plugin handles one trigger and, when paired,
// the trigger that cancels it.
package trigger

import (
	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/payload"
)

// Plugin produces events for one Crowdin trigger.
type Plugin interface {
	// Trigger is the Crowdin event name the plugin handles.
	Trigger() string
	// CancellingTrigger is the paired Crowdin event that reverses Trigger,
	// or "" when the plugin is unpaired.
	CancellingTrigger() string
	// PayloadObjectKey is the sub-event key holding the Crowdin object.
	PayloadObjectKey() string
	// RequiresBatchLookup reports whether Events needs the translations of
	// the payload's source string.
	RequiresBatchLookup() bool
	// ProjectID returns the Crowdin project id of the sub-event.
	ProjectID(p payload.Object) (string, bool)
	// Events builds the events for the sub-event. trigger is either Trigger
	// or CancellingTrigger; lookup is nil unless RequiresBatchLookup.
	Events(trigger string, p payload.Object, lookup []webhook.RemoteTranslation) []event.Event
}

// base carries the naming shared by every plugin.
type base struct {
	trigger    string
	cancelling string
	objectKey  string
	objectType string
}

func (b base) Trigger() string           { return b.trigger }
func (b base) CancellingTrigger() string { return b.cancelling }
func (b base) PayloadObjectKey() string  { return b.objectKey }

func (b base) ProjectID(p payload.Object) (string, bool) {
	return payload.Extract(p, b.objectKey, "string", "project", "id")
}

func (b base) cancels(trigger string) bool {
	return b.cancelling != "" && trigger == b.cancelling
}

func (b base) get(p payload.Object, keys ...string) string {
	return payload.String(p, append([]string{b.objectKey}, keys...)...)
}

// objectID prefixes the remote id with the object type, so a comment and a
// translation sharing a numeric id stay distinct. Objects without an id fall
// back to their source string URL.
func (b base) objectID(p payload.Object) string {
	if id, ok := payload.Extract(p, b.objectKey, "id"); ok && id != "" {
		return b.objectType + "-" + id
	}
	return b.get(p, "string", "url")
}

// newEvent fills the fields every plugin derives the same way.
func (b base) newEvent(name, trigger string, p payload.Object) event.Event {
	projectID, _ := b.ProjectID(p)
	return event.Event{
		Name:        name,
		ObjectID:    b.objectID(p),
		ObjectType:  b.objectType,
		ProjectID:   projectID,
		LanguageID:  b.get(p, "targetLanguage", "id"),
		DirectoryID: b.get(p, "string", "file", "directoryId"),
		Final:       true,
		Cancelling:  b.cancels(trigger),
	}
}
