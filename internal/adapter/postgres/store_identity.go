package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Strob0t/crowdin-gamification/internal/domain"
	"github.com/Strob0t/crowdin-gamification/internal/port/identity"
)

var (
	_ identity.Mapper  = (*Store)(nil)
	_ identity.Manager = (*Store)(nil)
)

// --- Identities ---

// AssociatedUsername returns "" when remoteUsername is not connected.
func (s *Store) AssociatedUsername(ctx context.Context, connector, remoteUsername string) (string, error) {
	var username string
	err := s.pool.QueryRow(ctx,
		`SELECT username FROM connector_accounts WHERE connector = $1 AND remote_username = $2`,
		connector, remoteUsername).Scan(&username)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup %s account %s: %w", connector, remoteUsername, err)
	}
	return username, nil
}

// ConnectAccount links a remote account to username, replacing an earlier link.
func (s *Store) ConnectAccount(ctx context.Context, connector, remoteUsername, username string) error {
	if connector == "" || remoteUsername == "" || username == "" {
		return fmt.Errorf("%w: connector, remote and local usernames are required", domain.ErrValidation)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO connector_accounts (connector, remote_username, username) VALUES ($1, $2, $3)
		 ON CONFLICT (connector, remote_username) DO UPDATE SET username = EXCLUDED.username, connected_at = now()`,
		connector, remoteUsername, username)
	if err != nil {
		return fmt.Errorf("connect %s account %s: %w", connector, remoteUsername, err)
	}
	return nil
}

// DisconnectAccount removes the link of a remote account.
func (s *Store) DisconnectAccount(ctx context.Context, connector, remoteUsername string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM connector_accounts WHERE connector = $1 AND remote_username = $2`, connector, remoteUsername)
	return execExpectOne(tag, err, "disconnect %s account %s", connector, remoteUsername)
}

// GetOrCreateUserIdentity is safe under concurrent calls for the same user.
func (s *Store) GetOrCreateUserIdentity(ctx context.Context, username string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO user_identities (username) VALUES ($1)
		 ON CONFLICT (username) DO UPDATE SET username = EXCLUDED.username
		 RETURNING id`, username).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("get or create identity %s: %w", username, err)
	}
	return id, nil
}
