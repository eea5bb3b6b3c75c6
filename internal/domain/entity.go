package domain

import (
	"time"
)

// Turn 一轮问答, one question/answer exchange recorded in a session's history.
// Immutable once created; ordering is append order, not wall-clock time.
type Turn struct {
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
	AuthorID  string    `json:"author_id,omitempty"`
}

// DefaultMaxHistoryLength is the window applied to every session unless
// overridden by configuration.
const DefaultMaxHistoryLength = 10

// Identity 会话归属, the result of resolving a request to a session.
type Identity struct {
	SessionID string
	AuthorID  string // empty for anonymous sessions
}

// Authenticated reports whether the identity is bound to a user.
func (id Identity) Authenticated() bool {
	return id.AuthorID != ""
}

// User is an account that can own authenticated sessions.
type User struct {
	Username     string
	PasswordHash string
	SessionIDs   []string // active authenticated sessions, oldest first
	CreatedAt    time.Time
}

// ActiveSession reports whether sessionID is in the user's active set.
func (u *User) ActiveSession(sessionID string) bool {
	for _, id := range u.SessionIDs {
		if id == sessionID {
			return true
		}
	}
	return false
}

// Token is a signed credential with its expiry.
type Token struct {
	Token     string
	ExpiresAt time.Time
}
