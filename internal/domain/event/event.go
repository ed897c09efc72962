// Package event defines the normalized gamification events produced from
// Crowdin webhook payloads and the actions broadcast for them.
package event

// Event is a normalized occurrence, built per webhook call and never stored.
type Event struct {
	Name        string // matches a gamification rule title
	Sender      string // Crowdin username; empty means same as Receiver
	Receiver    string
	ObjectID    string
	ObjectType  string
	ProjectID   string
	LanguageID  string
	Final       bool // false when the action is provisional (machine approval)
	DirectoryID string
	Cancelling  bool
}

// ActionKind selects the rules engine reaction to a broadcast.
type ActionKind string

const (
	// ActionGeneric grants the reward of the rule titled RuleTitle.
	ActionGeneric ActionKind = "exo.gamification.generic.action"
	// ActionCancel reverses a reward previously granted for RuleTitle.
	ActionCancel ActionKind = "gamification.cancel.event.action"
)

// Action is the payload handed to the broadcaster.
type Action struct {
	Kind       ActionKind `json:"kind"`
	Attributes Attributes `json:"attributes"`
}

// Attributes are the string attributes consumed by the rules engine.
type Attributes struct {
	SenderID     string `json:"senderId"`
	ReceiverID   string `json:"receiverId"`
	ObjectID     string `json:"objectId"`
	ObjectType   string `json:"objectType"`
	EventDetails string `json:"eventDetails"`
	RuleTitle    string `json:"ruleTitle"`
}
