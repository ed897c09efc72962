package rule

import "testing"

func TestMatches(t *testing.T) {
	r := Rule{Title: "suggestionApproved", ProjectID: "42", Enabled: true, CancellerEvents: []string{"suggestionDisapproved"}}

	tests := []struct {
		name      string
		rule      Rule
		event     string
		projectID string
		want      bool
	}{
		{"title match", r, "suggestionApproved", "42", true},
		{"canceller match", r, "suggestionDisapproved", "42", true},
		{"other project", r, "suggestionApproved", "7", false},
		{"unknown event", r, "stringComment.created", "42", false},
		{"disabled", Rule{Title: "x", Enabled: false}, "x", "42", false},
		{"deleted", Rule{Title: "x", Enabled: true, Deleted: true}, "x", "42", false},
		{"any project", Rule{Title: "x", Enabled: true}, "x", "99", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Matches(tt.event, tt.projectID); got != tt.want {
				t.Fatalf("Matches(%q, %q) = %v, want %v", tt.event, tt.projectID, got, tt.want)
			}
		})
	}
}
