package trigger

import (
	"testing"

	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/payload"
)

func decode(t *testing.T, body string) payload.Object {
	t.Helper()
	obj, err := payload.Decode([]byte(body))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return obj
}

const commentPayload = `{"event":"stringComment.created","comment":{"user":{"username":"u1"},"string":{"url":"/s/1","project":{"id":"42"}},"targetLanguage":{"id":"fr"},"string":{"file":{"directoryId":"7"}}}}`

func TestStringCommentCreated(t *testing.T) {
	pl := NewStringCommentPlugin()
	p := decode(t, commentPayload)

	projectID, ok := pl.ProjectID(p)
	if !ok || projectID != "42" {
		t.Fatalf("expected project 42, got %q %v", projectID, ok)
	}

	events := pl.Events(StringCommentCreated, p, nil)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Name != StringCommentCreated {
		t.Errorf("expected name %q, got %q", StringCommentCreated, ev.Name)
	}
	if ev.Sender != "u1" || ev.Receiver != "u1" {
		t.Errorf("expected sender=receiver=u1, got %q/%q", ev.Sender, ev.Receiver)
	}
	if ev.ObjectType != "comment" {
		t.Errorf("expected object type comment, got %q", ev.ObjectType)
	}
	if ev.ObjectID != "/s/1" {
		t.Errorf("expected url fallback object id, got %q", ev.ObjectID)
	}
	if ev.ProjectID != "42" || ev.LanguageID != "fr" || ev.DirectoryID != "7" {
		t.Errorf("unexpected location fields %+v", ev)
	}
	if !ev.Final || ev.Cancelling {
		t.Errorf("expected final non-cancelling event, got %+v", ev)
	}
}

func TestStringCommentDeletedCancels(t *testing.T) {
	pl := NewStringCommentPlugin()
	p := decode(t, `{"comment":{"id":15,"user":{"username":"u1"},"string":{"project":{"id":"42"}}}}`)

	events := pl.Events(StringCommentDeleted, p, nil)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].Cancelling {
		t.Error("expected cancelling event")
	}
	if events[0].Name != StringCommentDeleted {
		t.Errorf("expected name %q, got %q", StringCommentDeleted, events[0].Name)
	}
	if events[0].ObjectID != "comment-15" {
		t.Errorf("expected composite object id, got %q", events[0].ObjectID)
	}
}

func TestSuggestionAdded(t *testing.T) {
	pl := NewSuggestionAddedPlugin()
	p := decode(t, `{"translation":{"id":301,"user":{"username":"translator"},"string":{"project":{"id":9}}}}`)

	events := pl.Events(SuggestionAddedTrigger, p, nil)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Name != SuggestionAdded {
		t.Errorf("expected %q, got %q", SuggestionAdded, ev.Name)
	}
	if ev.Sender != "" || ev.Receiver != "translator" {
		t.Errorf("expected empty sender and receiver translator, got %q/%q", ev.Sender, ev.Receiver)
	}
	if ev.ObjectID != "translation-301" || ev.ProjectID != "9" {
		t.Errorf("unexpected ids %+v", ev)
	}

	deleted := pl.Events(SuggestionDeletedTrigger, p, nil)
	if deleted[0].Name != SuggestionDeleted || !deleted[0].Cancelling {
		t.Errorf("expected cancelling %q, got %+v", SuggestionDeleted, deleted[0])
	}
}

func approvalPayload(id string, provider bool) string {
	prov := ""
	if provider {
		prov = `"provider":"deepl",`
	}
	return `{"event":"suggestion.approved","translation":{"id":` + id + `,` + prov +
		`"user":{"username":"proofreader"},"targetLanguage":{"id":"de"},` +
		`"string":{"id":77,"url":"/s/77","project":{"id":"42"},"file":{"directoryId":"3"}}}}`
}

func TestSuggestionApprovedBatchCorrelation(t *testing.T) {
	lookup := []webhook.RemoteTranslation{{ID: 111, Username: "alice"}, {ID: 222, Username: "bob"}}

	tests := []struct {
		name       string
		id         string
		lookup     []webhook.RemoteTranslation
		wantEvents int
		wantAuthor string
	}{
		{"match credits author", "222", lookup, 2, "bob"},
		{"no match only approval", "999", lookup, 1, ""},
		{"nil lookup only approval", "222", nil, 1, ""},
		{"non numeric id never matches", `"abc"`, lookup, 1, ""},
	}
	pl := NewSuggestionApprovedPlugin()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := pl.Events(SuggestionApprovedTrigger, decode(t, approvalPayload(tt.id, false)), tt.lookup)
			if len(events) != tt.wantEvents {
				t.Fatalf("expected %d events, got %d: %+v", tt.wantEvents, len(events), events)
			}
			if events[0].Name != ApproveSuggestion || events[0].Sender != "proofreader" || events[0].Receiver != "proofreader" {
				t.Errorf("unexpected approval event %+v", events[0])
			}
			if tt.wantAuthor == "" {
				return
			}
			credit := events[1]
			if credit.Name != SuggestionApproved {
				t.Errorf("expected %q, got %q", SuggestionApproved, credit.Name)
			}
			if credit.Sender != tt.wantAuthor || credit.Receiver != tt.wantAuthor {
				t.Errorf("expected credit to %q, got %q/%q", tt.wantAuthor, credit.Sender, credit.Receiver)
			}
			if credit.ObjectID != "translation-"+tt.id || credit.ProjectID != "42" {
				t.Errorf("unexpected credit ids %+v", credit)
			}
		})
	}
}

func TestSuggestionApprovedRepeatDeliveryCreditsSameAuthor(t *testing.T) {
	pl := NewSuggestionApprovedPlugin()
	lookup := []webhook.RemoteTranslation{{ID: 111, Username: "alice"}, {ID: 222, Username: "bob"}}
	body := approvalPayload("111", false)

	first := pl.Events(SuggestionApprovedTrigger, decode(t, body), lookup)
	second := pl.Events(SuggestionApprovedTrigger, decode(t, body), lookup)
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected credit on both deliveries, got %d and %d", len(first), len(second))
	}
	if first[1] != second[1] {
		t.Fatalf("expected identical credit events, got %+v and %+v", first[1], second[1])
	}
}

func TestSuggestionApprovedProviderIsProvisional(t *testing.T) {
	pl := NewSuggestionApprovedPlugin()
	lookup := []webhook.RemoteTranslation{{ID: 5, Username: "alice"}}

	human := pl.Events(SuggestionApprovedTrigger, decode(t, approvalPayload("5", false)), lookup)
	machine := pl.Events(SuggestionApprovedTrigger, decode(t, approvalPayload("5", true)), lookup)

	for _, ev := range human {
		if !ev.Final {
			t.Errorf("expected human approval to be final, got %+v", ev)
		}
	}
	for _, ev := range machine {
		if ev.Final {
			t.Errorf("expected provider approval to be provisional, got %+v", ev)
		}
	}
}

func TestSuggestionDisapprovedCancelsBoth(t *testing.T) {
	pl := NewSuggestionApprovedPlugin()
	lookup := []webhook.RemoteTranslation{{ID: 222, Username: "bob"}}

	events := pl.Events(SuggestionDisapprovedTrigger, decode(t, approvalPayload("222", false)), lookup)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Name != DisapproveSuggestion || events[1].Name != SuggestionDisapproved {
		t.Errorf("unexpected names %q, %q", events[0].Name, events[1].Name)
	}
	for _, ev := range events {
		if !ev.Cancelling {
			t.Errorf("expected cancelling event, got %+v", ev)
		}
	}
}
