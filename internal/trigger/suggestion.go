package trigger

import (
	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/payload"
)

const (
	SuggestionAddedTrigger       = "suggestion.added"
	SuggestionDeletedTrigger     = "suggestion.deleted"
	SuggestionApprovedTrigger    = "suggestion.approved"
	SuggestionDisapprovedTrigger = "suggestion.disapproved"
)

// Event names emitted for suggestions.
const (
	SuggestionAdded       = "suggestionAdded"
	SuggestionDeleted     = "suggestionDeleted"
	ApproveSuggestion     = "approveSuggestion"
	DisapproveSuggestion  = "disapproveSuggestion"
	SuggestionApproved    = "suggestionApproved"
	SuggestionDisapproved = "suggestionDisapproved"
)

// SuggestionAddedPlugin rewards the translator who proposes a suggestion.
type SuggestionAddedPlugin struct {
	base
}

func NewSuggestionAddedPlugin() *SuggestionAddedPlugin {
	return &SuggestionAddedPlugin{base{
		trigger:    SuggestionAddedTrigger,
		cancelling: SuggestionDeletedTrigger,
		objectKey:  "translation",
		objectType: "translation",
	}}
}

func (*SuggestionAddedPlugin) RequiresBatchLookup() bool { return false }

func (s *SuggestionAddedPlugin) Events(trigger string, p payload.Object, _ []webhook.RemoteTranslation) []event.Event {
	name := SuggestionAdded
	if s.cancels(trigger) {
		name = SuggestionDeleted
	}
	ev := s.newEvent(name, trigger, p)
	ev.Receiver = s.get(p, "user", "username")
	return []event.Event{ev}
}

// SuggestionApprovedPlugin rewards both sides of an approval: the proofreader
// who approved, and the translator whose suggestion was approved.
type SuggestionApprovedPlugin struct {
	base
}

func NewSuggestionApprovedPlugin() *SuggestionApprovedPlugin {
	return &SuggestionApprovedPlugin{base{
		trigger:    SuggestionApprovedTrigger,
		cancelling: SuggestionDisapprovedTrigger,
		objectKey:  "translation",
		objectType: "translation",
	}}
}

// RequiresBatchLookup is true: the webhook only names the approver, the
// author comes from the string's translation list.
func (*SuggestionApprovedPlugin) RequiresBatchLookup() bool { return true }

func (s *SuggestionApprovedPlugin) Events(trigger string, p payload.Object, lookup []webhook.RemoteTranslation) []event.Event {
	cancelling := s.cancels(trigger)
	// Approvals made by a machine translation provider stay provisional.
	_, automated := payload.Extract(p, s.objectKey, "provider")

	actionName, creditName := ApproveSuggestion, SuggestionApproved
	if cancelling {
		actionName, creditName = DisapproveSuggestion, SuggestionDisapproved
	}

	approval := s.newEvent(actionName, trigger, p)
	approval.Sender = s.get(p, "user", "username")
	approval.Receiver = approval.Sender
	approval.Final = !automated
	events := []event.Event{approval}

	author, ok := s.author(p, lookup)
	if !ok {
		return events
	}
	credit := approval
	credit.Name = creditName
	credit.Sender = author
	credit.Receiver = author
	return append(events, credit)
}

func (s *SuggestionApprovedPlugin) author(p payload.Object, lookup []webhook.RemoteTranslation) (string, bool) {
	if len(lookup) == 0 {
		return "", false
	}
	id, ok := payload.Int64(p, s.objectKey, "id")
	if !ok {
		return "", false
	}
	for _, t := range lookup {
		if t.ID == id {
			return t.Username, true
		}
	}
	return "", false
}
