package service

// RoleChecker decides who may manage Crowdin hooks.
type RoleChecker interface {
	IsRewardingManager(username string) bool
}

// StaticRoles grants the rewarding manager role to a fixed set of users.
type StaticRoles struct {
	managers map[string]struct{}
}

// NewStaticRoles creates a StaticRoles from the configured manager usernames.
func NewStaticRoles(managers []string) *StaticRoles {
	m := make(map[string]struct{}, len(managers))
	for _, u := range managers {
		if u != "" {
			m[u] = struct{}{}
		}
	}
	return &StaticRoles{managers: m}
}

// IsRewardingManager reports whether username is a configured manager.
func (r *StaticRoles) IsRewardingManager(username string) bool {
	if username == "" {
		return false
	}
	_, ok := r.managers[username]
	return ok
}
