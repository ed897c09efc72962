// Package rule holds the gamification rule view the connector reads from the rules engine.
package rule

// Rule is a gamification rule bound to a Crowdin event.
type Rule struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	EventType       string   `json:"eventType"` // connector name, "crowdin"
	ProjectID       string   `json:"projectId,omitempty"`
	Enabled         bool     `json:"enabled"`
	Deleted         bool     `json:"deleted"`
	CancellerEvents []string `json:"cancellerEvents,omitempty"`
}

// CancelledBy reports whether eventName is one of the rule's canceller events.
func (r Rule) CancelledBy(eventName string) bool {
	for _, c := range r.CancellerEvents {
		if c == eventName {
			return true
		}
	}
	return false
}

// Matches reports whether the rule reacts to eventName in the given project.
// A rule without a project applies to every project.
func (r Rule) Matches(eventName, projectID string) bool {
	if !r.Enabled || r.Deleted {
		return false
	}
	if r.ProjectID != "" && r.ProjectID != projectID {
		return false
	}
	return r.Title == eventName || r.CancelledBy(eventName)
}
