package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/crowdin-gamification/internal/domain/rule"
	"github.com/Strob0t/crowdin-gamification/internal/domain/webhook"
	"github.com/Strob0t/crowdin-gamification/internal/port/rules"
)

var _ rules.Service = (*Store)(nil)

const ruleColumns = `id, title, event_type, COALESCE(project_id, ''), enabled, deleted, canceller_events`

// --- Gamification rules ---

// IsTriggerEnabledForAccount reports whether an enabled Crowdin rule of the
// project, or of every project, names eventName as title or canceller.
func (s *Store) IsTriggerEnabledForAccount(ctx context.Context, eventName, projectID string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM gamification_rules
			WHERE event_type = $1 AND enabled AND NOT deleted
			  AND (title = $2 OR $2 = ANY(canceller_events))
			  AND (project_id IS NULL OR project_id = '' OR project_id = $3))`,
		webhook.ConnectorName, eventName, projectID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check rule for %s: %w", eventName, err)
	}
	return ok, nil
}

func (s *Store) GetRulesByTitle(ctx context.Context, eventName string) ([]rule.Rule, error) {
	return s.queryRules(ctx, "rules titled "+eventName,
		`SELECT `+ruleColumns+` FROM gamification_rules
		 WHERE event_type = $1 AND title = $2 AND enabled AND NOT deleted ORDER BY id`,
		webhook.ConnectorName, eventName)
}

func (s *Store) GetEnabledRulesMatchingCancellerEvent(ctx context.Context, eventName string) ([]rule.Rule, error) {
	return s.queryRules(ctx, "rules cancelled by "+eventName,
		`SELECT `+ruleColumns+` FROM gamification_rules
		 WHERE event_type = $1 AND $2 = ANY(canceller_events) AND enabled AND NOT deleted ORDER BY id`,
		webhook.ConnectorName, eventName)
}

// DeleteRulesByProject marks the project's Crowdin rules deleted.
func (s *Store) DeleteRulesByProject(ctx context.Context, projectID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE gamification_rules SET deleted = TRUE, enabled = FALSE
		 WHERE event_type = $1 AND project_id = $2 AND NOT deleted`,
		webhook.ConnectorName, projectID)
	if err != nil {
		return 0, fmt.Errorf("delete rules of project %s: %w", projectID, err)
	}
	return int(tag.RowsAffected()), nil
}

// SaveRule inserts r and sets its ID.
func (s *Store) SaveRule(ctx context.Context, r *rule.Rule) error {
	if r.EventType == "" {
		r.EventType = webhook.ConnectorName
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO gamification_rules (title, event_type, project_id, enabled, deleted, canceller_events)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		r.Title, r.EventType, nullIfEmpty(r.ProjectID), r.Enabled, r.Deleted, pgTextArray(r.CancellerEvents),
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("save rule %s: %w", r.Title, err)
	}
	return nil
}

func (s *Store) queryRules(ctx context.Context, what, query string, args ...any) ([]rule.Rule, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", what, err)
	}
	defer rows.Close()

	var out []rule.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanRule(row scannable) (rule.Rule, error) {
	var r rule.Rule
	err := row.Scan(&r.ID, &r.Title, &r.EventType, &r.ProjectID, &r.Enabled, &r.Deleted, &r.CancellerEvents)
	return r, err
}
