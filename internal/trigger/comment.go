package trigger

import (
	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/payload"
)

const (
	StringCommentCreated = "stringComment.created"
	StringCommentDeleted = "stringComment.deleted"
)

// StringCommentPlugin rewards the author of a string comment.
type StringCommentPlugin struct {
	base
}

func NewStringCommentPlugin() *StringCommentPlugin {
	return &StringCommentPlugin{base{
		trigger:    StringCommentCreated,
		cancelling: StringCommentDeleted,
		objectKey:  "comment",
		objectType: "comment",
	}}
}

func (*StringCommentPlugin) RequiresBatchLookup() bool { return false }

// Events emits one event named after the firing trigger, so a deletion
// reaches the rules that list it as a canceller.
func (c *StringCommentPlugin) Events(trigger string, p payload.Object, _ []webhook.RemoteTranslation) []event.Event {
	ev := c.newEvent(trigger, trigger, p)
	ev.Sender = c.get(p, "user", "username")
	ev.Receiver = ev.Sender
	return []event.Event{ev}
}
