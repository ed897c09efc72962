package trigger

import (
	"strings"
	"testing"

	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/payload"
)

type stubPlugin struct {
	base
}

func (stubPlugin) RequiresBatchLookup() bool { return false }
func (stubPlugin) Events(string, payload.Object, []webhook.RemoteTranslation) []event.Event {
	return nil
}

func TestRegistryResolvesBothTriggers(t *testing.T) {
	r, err := NewRegistry(DefaultPlugins()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	approve, ok := r.Resolve(SuggestionApprovedTrigger)
	if !ok {
		t.Fatal("expected suggestion.approved to resolve")
	}
	disapprove, ok := r.Resolve(SuggestionDisapprovedTrigger)
	if !ok {
		t.Fatal("expected suggestion.disapproved to resolve")
	}
	if approve != disapprove {
		t.Fatal("expected paired triggers to resolve to the same plugin")
	}

	if _, ok := r.Resolve("file.added"); ok {
		t.Fatal("expected unknown trigger to miss")
	}
}

func TestRegistryTriggers(t *testing.T) {
	r, err := NewRegistry(DefaultPlugins()...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	got := strings.Join(r.Triggers(), ",")
	want := "stringComment.created,stringComment.deleted,suggestion.added,suggestion.approved,suggestion.deleted,suggestion.disapproved"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	for _, name := range r.Triggers() {
		found := false
		for _, subscribed := range webhook.Triggers {
			if subscribed == name {
				found = true
			}
		}
		if !found {
			t.Errorf("trigger %q is handled but never subscribed", name)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	dup := stubPlugin{base{trigger: "other.event", cancelling: StringCommentDeleted}}
	if _, err := NewRegistry(NewStringCommentPlugin(), dup); err == nil {
		t.Fatal("expected duplicate cancelling trigger to be rejected")
	}
	if _, err := NewRegistry(stubPlugin{}); err == nil {
		t.Fatal("expected plugin without trigger to be rejected")
	}
}

func TestRegistryUnpairedPlugin(t *testing.T) {
	r, err := NewRegistry(stubPlugin{base{trigger: "task.added"}})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if len(r.Triggers()) != 1 {
		t.Fatalf("expected only the trigger to be registered, got %v", r.Triggers())
	}
	if _, ok := r.Resolve(""); ok {
		t.Fatal("empty name must not resolve")
	}
}
