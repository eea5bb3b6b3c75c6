package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tdiprima/langchain-flask-api/internal/domain"
)

type userRecord struct {
	PasswordHash string    `json:"password_hash"`
	Sessions     []string  `json:"sessions"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserFileStore persists account state as a JSON document, same
// temp-then-rename pattern as the history snapshot.
type UserFileStore struct {
	path string
}

func NewUserFileStore(path string) *UserFileStore {
	return &UserFileStore{path: path}
}

func (u *UserFileStore) SaveUsers(ctx context.Context, users map[string]*domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(u.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create users directory %s: %w", dir, err)
		}
	}

	records := make(map[string]userRecord, len(users))
	for name, usr := range users {
		sessions := usr.SessionIDs
		if sessions == nil {
			sessions = []string{}
		}
		records[name] = userRecord{
			PasswordHash: usr.PasswordHash,
			Sessions:     sessions,
			CreatedAt:    usr.CreatedAt,
		}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(u.path), filepath.Base(u.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp users file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close users file: %w", err)
	}
	if err := os.Rename(tmpName, u.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace users file: %w", err)
	}
	return nil
}

func (u *UserFileStore) LoadUsers(ctx context.Context) (map[string]*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(u.path)
	if os.IsNotExist(err) {
		return map[string]*domain.User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read users file %s: %w", u.path, err)
	}

	var records map[string]userRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCorruptSnapshot, u.path, err)
	}

	users := make(map[string]*domain.User, len(records))
	for name, rec := range records {
		users[name] = &domain.User{
			Username:     name,
			PasswordHash: rec.PasswordHash,
			SessionIDs:   rec.Sessions,
			CreatedAt:    rec.CreatedAt,
		}
	}
	return users, nil
}
