// Package rules defines the port to the gamification rules engine.
package rules

import (
	"context"

	"github.com/Strob0t/crowdin-gamification/internal/domain/rule"
)

// Service answers rule questions for connector events.
type Service interface {
	// IsTriggerEnabledForAccount reports whether an enabled rule bound to
	// projectID reacts to eventName, as its title or as a canceller.
	IsTriggerEnabledForAccount(ctx context.Context, eventName, projectID string) (bool, error)
	// GetRulesByTitle returns the enabled rules titled eventName.
	GetRulesByTitle(ctx context.Context, eventName string) ([]rule.Rule, error)
	// GetEnabledRulesMatchingCancellerEvent returns the enabled connector
	// rules whose canceller events contain eventName.
	GetEnabledRulesMatchingCancellerEvent(ctx context.Context, eventName string) ([]rule.Rule, error)
	// DeleteRulesByProject removes every rule bound to projectID and returns
	// how many were removed.
	DeleteRulesByProject(ctx context.Context, projectID string) (int, error)
}
