package registry

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tdiprima/langchain-flask-api/internal/domain"
	"github.com/tdiprima/langchain-flask-api/internal/persistence"
	"github.com/tdiprima/langchain-flask-api/internal/security"

	"go.uber.org/zap"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	store := persistence.NewUserFileStore(filepath.Join(t.TempDir(), "users.json"))
	return NewRegistry(
		security.NewJWTService("test-secret", 1, 24),
		security.NewBcryptEncoder(),
		store,
		nil,
		zap.NewNop().Sugar(),
	)
}

func TestRegisterAndLogin(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	if err := r.Register(ctx, "alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(ctx, "alice", "other"); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("duplicate register: expected ErrUserAlreadyExists, got %v", err)
	}

	res, err := r.Login(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if res.SessionID == "" || res.AccessToken == nil || res.RefreshToken == nil {
		t.Fatal("login must return a session id and both tokens")
	}
	if r.Owner(res.SessionID) != "alice" {
		t.Error("reverse index must map the new session to its owner")
	}

	if _, err := r.Login(ctx, "alice", "wrong"); !errors.Is(err, domain.ErrInvalidPassword) {
		t.Errorf("bad password: expected ErrInvalidPassword, got %v", err)
	}
	if _, err := r.Login(ctx, "nobody", "hunter2"); !errors.Is(err, domain.ErrInvalidPassword) {
		t.Errorf("unknown user: expected ErrInvalidPassword, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	if err := r.Register(ctx, "", "pw"); !errors.Is(err, domain.ErrMissingCreds) {
		t.Errorf("expected ErrMissingCreds, got %v", err)
	}
	if err := r.Register(ctx, "has spaces", "pw"); !errors.Is(err, domain.ErrInvalidUsername) {
		t.Errorf("expected ErrInvalidUsername, got %v", err)
	}
	if err := r.Register(ctx, "way_too_long_username_x", "pw"); !errors.Is(err, domain.ErrInvalidUsername) {
		t.Errorf("expected ErrInvalidUsername for >20 chars, got %v", err)
	}
}

func TestLogin_Concurrent(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()
	if err := r.Register(ctx, "alice", "hunter2"); err != nil {
		t.Fatal(err)
	}

	const n = 4
	var wg sync.WaitGroup
	results := make([]*LoginResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = r.Login(ctx, "alice", "hunter2")
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("login %d failed: %v", i, errs[i])
		}
		if seen[results[i].SessionID] {
			t.Fatalf("duplicate session id %q across concurrent logins", results[i].SessionID)
		}
		seen[results[i].SessionID] = true
		if r.Owner(results[i].SessionID) != "alice" {
			t.Errorf("session %q not indexed to its owner", results[i].SessionID)
		}
	}
}

func TestLogin_TokenFailureLeavesNoSession(t *testing.T) {
	r := NewRegistry(brokenTokens{}, security.NewBcryptEncoder(), nil, nil, zap.NewNop().Sugar())
	ctx := context.Background()

	if err := r.Register(ctx, "alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Login(ctx, "alice", "hunter2"); !errors.Is(err, domain.ErrTokenGenerateFailed) {
		t.Fatalf("expected ErrTokenGenerateFailed, got %v", err)
	}
	if len(r.bySession) != 0 {
		t.Errorf("failed login left sessions in the reverse index: %v", r.bySession)
	}
	if len(r.users["alice"].SessionIDs) != 0 {
		t.Errorf("failed login left sessions on the user: %v", r.users["alice"].SessionIDs)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	r := testRegistry(t)
	ctx := context.Background()

	if err := r.Register(ctx, "alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	res, err := r.Login(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatal(err)
	}

	if !r.Logout(ctx, "alice", res.SessionID) {
		t.Error("first logout must report true")
	}
	if r.Logout(ctx, "alice", res.SessionID) {
		t.Error("second logout must report false without erroring")
	}
	if r.Owner(res.SessionID) != "" {
		t.Error("logged-out session must leave the reverse index")
	}
}

func TestResolve_TokenWins(t *testing.T) {
	tokens := &fakeTokens{username: "alice", sessionID: "sid-9"}
	r := NewRegistry(tokens, security.NewBcryptEncoder(), nil, nil, zap.NewNop().Sugar())
	r.users["alice"] = &domain.User{Username: "alice", SessionIDs: []string{"sid-9"}}
	r.bySession["sid-9"] = "alice"

	id := r.Resolve("", "valid-token")
	if id.SessionID != "sid-9" || id.AuthorID != "alice" {
		t.Errorf("expected {sid-9 alice}, got %+v", id)
	}
	if !id.Authenticated() {
		t.Error("token resolution must be authenticated")
	}
}

func TestResolve_TokenForLoggedOutSession(t *testing.T) {
	tokens := &fakeTokens{username: "alice", sessionID: "sid-9"}
	r := NewRegistry(tokens, security.NewBcryptEncoder(), nil, nil, zap.NewNop().Sugar())
	// alice exists but sid-9 is no longer active.
	r.users["alice"] = &domain.User{Username: "alice"}

	id := r.Resolve("caller-session", "valid-token")
	if id.SessionID != "caller-session" || id.AuthorID != "" {
		t.Errorf("stale token must fall back to the supplied id, got %+v", id)
	}
}

func TestResolve_SuppliedID(t *testing.T) {
	r := testRegistry(t)
	id := r.Resolve("my-session", "")
	if id.SessionID != "my-session" || id.Authenticated() {
		t.Errorf("expected anonymous pass-through, got %+v", id)
	}
}

func TestResolve_MintsFresh(t *testing.T) {
	r := testRegistry(t)
	a := r.Resolve("", "")
	b := r.Resolve("", "")
	if a.SessionID == "" || a.SessionID == b.SessionID {
		t.Errorf("expected distinct fresh ids, got %q and %q", a.SessionID, b.SessionID)
	}
	if a.Authenticated() {
		t.Error("fresh sessions are anonymous")
	}
}

func TestMint_AvoidsTakenIDs(t *testing.T) {
	seen := map[string]bool{}
	first := true
	// Reject the first candidate to force a retry.
	taken := func(id string) bool {
		seen[id] = true
		if first {
			first = false
			return true
		}
		return false
	}
	r := NewRegistry(security.NewJWTService("s", 1, 1), security.NewBcryptEncoder(), nil, taken, zap.NewNop().Sugar())

	id := r.Resolve("", "")
	if len(seen) != 2 {
		t.Errorf("expected one retry after collision, checked %d candidates", len(seen))
	}
	if seen[id.SessionID] != true {
		t.Error("minted id was never checked against existing keys")
	}
}

func TestUsersPersistAcrossRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users.json")
	store := persistence.NewUserFileStore(path)
	jwt := security.NewJWTService("test-secret", 1, 24)
	enc := security.NewBcryptEncoder()

	r1 := NewRegistry(jwt, enc, store, nil, zap.NewNop().Sugar())
	if err := r1.Register(ctx, "alice", "hunter2"); err != nil {
		t.Fatal(err)
	}
	res, err := r1.Login(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatal(err)
	}

	// Simulated restart.
	r2 := NewRegistry(jwt, enc, store, nil, zap.NewNop().Sugar())
	if err := r2.LoadUsers(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := r2.Login(ctx, "alice", "hunter2"); err != nil {
		t.Errorf("account must survive restart: %v", err)
	}
	if r2.Owner(res.SessionID) != "alice" {
		t.Error("active sessions and reverse index must survive restart")
	}
}

// brokenTokens fails access-token generation.
type brokenTokens struct{}

func (brokenTokens) GenerateAccessToken(username, sessionID string) (*domain.Token, error) {
	return nil, domain.ErrTokenGenerateFailed
}

func (brokenTokens) GenerateRefreshToken(username, sessionID string) (*domain.Token, error) {
	return &domain.Token{Token: "refresh"}, nil
}

func (brokenTokens) ValidateToken(token string) (string, string, error) {
	return "", "", domain.ErrInvalidToken
}

// fakeTokens validates any non-empty token as the configured identity.
type fakeTokens struct {
	username  string
	sessionID string
}

func (f *fakeTokens) GenerateAccessToken(username, sessionID string) (*domain.Token, error) {
	return &domain.Token{Token: "access"}, nil
}

func (f *fakeTokens) GenerateRefreshToken(username, sessionID string) (*domain.Token, error) {
	return &domain.Token{Token: "refresh"}, nil
}

func (f *fakeTokens) ValidateToken(token string) (string, string, error) {
	if token == "" {
		return "", "", domain.ErrInvalidToken
	}
	return f.username, f.sessionID, nil
}
