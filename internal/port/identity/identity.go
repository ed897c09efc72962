// Package identity defines the ports mapping Crowdin users to platform users.
package identity

import "context"

// Mapper resolves a remote username to the internal username connected to it.
type Mapper interface {
	// AssociatedUsername returns "" when the remote user is not connected.
	AssociatedUsername(ctx context.Context, connector, remoteUsername string) (string, error)
}

// Manager owns social identities.
type Manager interface {
	// GetOrCreateUserIdentity returns the identity id of username, creating it when missing.
	GetOrCreateUserIdentity(ctx context.Context, username string) (int64, error)
}
