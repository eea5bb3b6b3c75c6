package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/tdiprima/langchain-flask-api/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// SessionModel keeps one row per known session so that sessions cleared to
// empty still round-trip through Save/Load.
type SessionModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"uniqueIndex;size:255;not null"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

// TurnModel is one persisted turn. Seq preserves append order within a
// session independently of wall-clock timestamps.
type TurnModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	SessionID string    `gorm:"index:idx_session_seq,priority:1;size:255;not null"`
	Seq       int       `gorm:"index:idx_session_seq,priority:2;not null"`
	Question  string    `gorm:"type:text;not null"`
	Answer    string    `gorm:"type:text;not null"`
	AuthorID  string    `gorm:"size:255"`
	Timestamp time.Time `gorm:"not null"`
}

func (TurnModel) TableName() string {
	return "turns"
}

// PostgresStore persists snapshots to Postgres through gorm. Each Save
// rewrites both tables in one transaction.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	if err := db.AutoMigrate(&SessionModel{}, &TurnModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history tables: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Save(ctx context.Context, snap domain.Snapshot) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&TurnModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear turns: %w", err)
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&SessionModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear sessions: %w", err)
		}

		sessions := make([]SessionModel, 0, len(snap))
		var turns []TurnModel
		for sid, ts := range snap {
			sessions = append(sessions, SessionModel{SessionID: sid})
			for i, t := range ts {
				turns = append(turns, TurnModel{
					SessionID: sid,
					Seq:       i,
					Question:  t.Question,
					Answer:    t.Answer,
					AuthorID:  t.AuthorID,
					Timestamp: t.Timestamp,
				})
			}
		}
		if len(sessions) > 0 {
			if err := tx.Create(&sessions).Error; err != nil {
				return fmt.Errorf("failed to save sessions: %w", err)
			}
		}
		if len(turns) > 0 {
			if err := tx.Create(&turns).Error; err != nil {
				return fmt.Errorf("failed to save turns: %w", err)
			}
		}
		return nil
	})
}

func (p *PostgresStore) Load(ctx context.Context) (domain.Snapshot, error) {
	var sessions []SessionModel
	if err := p.db.WithContext(ctx).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	snap := make(domain.Snapshot, len(sessions))
	for _, s := range sessions {
		snap[s.SessionID] = []domain.Turn{}
	}

	var turns []TurnModel
	if err := p.db.WithContext(ctx).
		Order("session_id, seq").
		Find(&turns).Error; err != nil {
		return nil, fmt.Errorf("failed to load turns: %w", err)
	}
	for _, t := range turns {
		snap[t.SessionID] = append(snap[t.SessionID], domain.Turn{
			Question:  t.Question,
			Answer:    t.Answer,
			Timestamp: t.Timestamp,
			AuthorID:  t.AuthorID,
		})
	}
	return snap, nil
}
