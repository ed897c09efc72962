// Package broadcast defines the port for handing gamification actions to the rules engine.
package broadcast

import (
	"context"

	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
)

// Broadcaster publishes gamification actions.
type Broadcaster interface {
	// Broadcast delivers one action. A failure concerns that action only.
	Broadcast(ctx context.Context, action event.Action) error
}
