package domain

import "context"

// Snapshot maps session id to that session's turns, most-recent-last. It is
// the unit of persistence: Save always writes the whole thing.
type Snapshot = map[string][]Turn

// Snapshotter persists and restores the full history store as one document.
type Snapshotter interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context) (Snapshot, error)
}

// Completer is the external language-model call. Failures wrap ErrUpstream.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// UserStore persists account state for the session registry.
type UserStore interface {
	SaveUsers(ctx context.Context, users map[string]*User) error
	LoadUsers(ctx context.Context) (map[string]*User, error)
}

// PasswordEncoder hashes and verifies credentials.
type PasswordEncoder interface {
	Hash(raw string) (string, error)
	Compare(hashed, raw string) bool
}

// TokenService issues and validates signed auth tokens.
type TokenService interface {
	GenerateAccessToken(username, sessionID string) (*Token, error)
	GenerateRefreshToken(username, sessionID string) (*Token, error)
	ValidateToken(token string) (username, sessionID string, err error)
}
