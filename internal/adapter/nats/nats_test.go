package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Strob0t/crowdin-gamification/internal/config"
	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
	"github.com/Strob0t/crowdin-gamification/internal/logger"
)

// testConnect connects to NATS or skips the test if NATS_URL is not set.
func testConnect(t *testing.T) *Broadcaster {
	t.Helper()

	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	b, err := Connect(context.Background(), config.NATS{
		URL:           url,
		Stream:        "GAMIFICATION_TEST",
		SubjectPrefix: "test.gamification.actions",
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return b
}

func TestSubjects(t *testing.T) {
	b := &Broadcaster{prefix: "gamification.actions"}
	if got := b.Subject(event.ActionGeneric); got != "gamification.actions.generic" {
		t.Fatalf("unexpected generic subject %q", got)
	}
	if got := b.Subject(event.ActionCancel); got != "gamification.actions.cancel" {
		t.Fatalf("unexpected cancel subject %q", got)
	}
}

func TestBroadcastAndSubscribe(t *testing.T) {
	b := testConnect(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	type received struct {
		action     event.Action
		deliveryID string
	}
	got := make(chan received, 1)
	stop, err := b.Subscribe(ctx, b.Subject(event.ActionCancel), func(ctx context.Context, a event.Action) error {
		got <- received{action: a, deliveryID: logger.DeliveryID(ctx)}
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer stop()

	want := event.Action{Kind: event.ActionCancel, Attributes: event.Attributes{
		SenderID:     "bob",
		ReceiverID:   "bob",
		ObjectID:     "translation-222",
		ObjectType:   "translation",
		EventDetails: `{"projectId":"42"}`,
		RuleTitle:    "suggestionApproved",
	}}
	if err := b.Broadcast(logger.WithDeliveryID(ctx, "d-1"), want); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	select {
	case r := <-got:
		if r.action != want {
			t.Fatalf("expected %+v, got %+v", want, r.action)
		}
		if r.deliveryID != "d-1" {
			t.Fatalf("expected delivery id header, got %q", r.deliveryID)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for action")
	}
}

func TestHealthy(t *testing.T) {
	b := testConnect(t)
	if !b.Healthy() {
		t.Fatal("expected connected broadcaster to be healthy")
	}
}
