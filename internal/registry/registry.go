// Package registry maps opaque session ids to identity state: anonymous
// sessions pass through untouched, authenticated ones are tracked per user
// with an indexed reverse lookup instead of scanning every user's sessions.
package registry

import (
	"context"
	"regexp"
	"sync"

	"github.com/tdiprima/langchain-flask-api/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{1,20}$`)

// Registry owns account state and the session ↔ user mapping.
type Registry struct {
	mu        sync.RWMutex
	users     map[string]*domain.User
	bySession map[string]string // sessionID -> username

	tokens  domain.TokenService
	encoder domain.PasswordEncoder
	store   domain.UserStore // nil disables account persistence
	taken   func(sessionID string) bool
	logger  *zap.SugaredLogger
}

// LoginResult carries everything /login returns to the caller.
type LoginResult struct {
	SessionID    string
	AccessToken  *domain.Token
	RefreshToken *domain.Token
}

// NewRegistry builds an empty registry. taken reports whether a candidate
// session id is already a key elsewhere (the history store); nil means no
// external keys to avoid.
func NewRegistry(tokens domain.TokenService, encoder domain.PasswordEncoder, store domain.UserStore, taken func(string) bool, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		users:     make(map[string]*domain.User),
		bySession: make(map[string]string),
		tokens:    tokens,
		encoder:   encoder,
		store:     store,
		taken:     taken,
		logger:    logger,
	}
}

// LoadUsers restores account state from the user store. Called once at
// startup; a cold start leaves the registry empty.
func (r *Registry) LoadUsers(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	users, err := r.store.LoadUsers(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = users
	r.bySession = make(map[string]string)
	for name, u := range users {
		for _, sid := range u.SessionIDs {
			r.bySession[sid] = name
		}
	}
	return nil
}

// Register creates a new account. The username must be 1-20 word characters
// and unused.
func (r *Registry) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return domain.ErrMissingCreds
	}
	if !usernamePattern.MatchString(username) {
		return domain.ErrInvalidUsername
	}
	hash, err := r.encoder.Hash(password)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[username]; exists {
		return domain.ErrUserAlreadyExists
	}
	r.users[username] = &domain.User{
		Username:     username,
		PasswordHash: hash,
	}
	r.persistLocked(ctx)
	return nil
}

// Login verifies the credentials, mints a fresh authenticated session and
// returns it with access/refresh tokens.
func (r *Registry) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, domain.ErrMissingCreds
	}

	r.mu.RLock()
	u, ok := r.users[username]
	var hash string
	if ok {
		hash = u.PasswordHash
	}
	r.mu.RUnlock()

	// The bcrypt comparison is deliberately slow; run it outside the lock
	// so concurrent logins and Resolve calls are not serialized behind it.
	if !ok || !r.encoder.Compare(hash, password) {
		// Same error for unknown user and bad password.
		return nil, domain.ErrInvalidPassword
	}

	r.mu.Lock()
	u, ok = r.users[username]
	if !ok {
		r.mu.Unlock()
		return nil, domain.ErrInvalidPassword
	}
	sessionID := r.mintLocked()
	u.SessionIDs = append(u.SessionIDs, sessionID)
	r.bySession[sessionID] = username
	r.persistLocked(ctx)
	r.mu.Unlock()

	access, err := r.tokens.GenerateAccessToken(username, sessionID)
	if err != nil {
		r.InvalidateIdentitySession(ctx, username, sessionID)
		return nil, err
	}
	refresh, err := r.tokens.GenerateRefreshToken(username, sessionID)
	if err != nil {
		r.InvalidateIdentitySession(ctx, username, sessionID)
		return nil, err
	}
	return &LoginResult{SessionID: sessionID, AccessToken: access, RefreshToken: refresh}, nil
}

// Logout removes the session from the user's active set. Idempotent: an
// unknown session reports false without erroring.
func (r *Registry) Logout(ctx context.Context, username, sessionID string) bool {
	return r.InvalidateIdentitySession(ctx, username, sessionID)
}

// CreateIdentitySession mints a fresh session bound to the user.
func (r *Registry) CreateIdentitySession(ctx context.Context, username string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[username]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	sessionID := r.mintLocked()
	u.SessionIDs = append(u.SessionIDs, sessionID)
	r.bySession[sessionID] = username
	r.persistLocked(ctx)
	return sessionID, nil
}

// InvalidateIdentitySession removes sessionID from the user's active set and
// the reverse index, reporting whether it was present.
func (r *Registry) InvalidateIdentitySession(ctx context.Context, username, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[username]
	if !ok {
		return false
	}
	for i, sid := range u.SessionIDs {
		if sid == sessionID {
			u.SessionIDs = append(u.SessionIDs[:i], u.SessionIDs[i+1:]...)
			delete(r.bySession, sessionID)
			r.persistLocked(ctx)
			return true
		}
	}
	return false
}

// Resolve turns (sessionID?, authToken?) into an identity. A valid token for
// a still-active session wins; a supplied session id passes through
// unauthenticated; otherwise a fresh anonymous session id is minted.
func (r *Registry) Resolve(sessionID, authToken string) domain.Identity {
	if authToken != "" {
		if username, tokenSession, err := r.tokens.ValidateToken(authToken); err == nil {
			r.mu.RLock()
			owner, active := r.bySession[tokenSession]
			r.mu.RUnlock()
			if active && owner == username {
				return domain.Identity{SessionID: tokenSession, AuthorID: username}
			}
			// Token outlived its session (logout); fall through.
		}
	}
	if sessionID != "" {
		// The caller's id may still belong to a logged-in user.
		r.mu.RLock()
		owner := r.bySession[sessionID]
		r.mu.RUnlock()
		return domain.Identity{SessionID: sessionID, AuthorID: owner}
	}

	r.mu.Lock()
	fresh := r.mintLocked()
	r.mu.Unlock()
	return domain.Identity{SessionID: fresh}
}

// Owner returns the username owning sessionID, empty if anonymous.
func (r *Registry) Owner(sessionID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bySession[sessionID]
}

// mintLocked generates a session id that collides with no history-store key
// and no active authenticated session. Caller holds r.mu.
func (r *Registry) mintLocked() string {
	for {
		id := uuid.NewString()
		if _, exists := r.bySession[id]; exists {
			continue
		}
		if r.taken != nil && r.taken(id) {
			continue
		}
		return id
	}
}

// persistLocked writes account state through the user store. Failures are
// logged, never surfaced: the in-memory registry stays the source of truth.
// Caller holds r.mu.
func (r *Registry) persistLocked(ctx context.Context) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveUsers(ctx, r.users); err != nil {
		r.logger.Errorw("Failed to persist users", "error", err)
	}
}
