package application

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/tdiprima/langchain-flask-api/internal/domain"
	"github.com/tdiprima/langchain-flask-api/internal/history"
	"github.com/tdiprima/langchain-flask-api/internal/prompt"
	"github.com/tdiprima/langchain-flask-api/internal/registry"

	"go.uber.org/zap"
)

const flushTimeout = 10 * time.Second

// ChatService wires the session registry, the history store, the prompt
// assembler and the completion capability behind the HTTP handlers.
type ChatService struct {
	store         *history.Store
	registry      *registry.Registry
	completer     domain.Completer
	snapshotter   domain.Snapshotter // nil disables history persistence
	flushOnAppend bool
	flushMu       sync.Mutex // serializes background flushes
	logger        *zap.SugaredLogger
}

func NewChatService(store *history.Store, reg *registry.Registry, completer domain.Completer, snapshotter domain.Snapshotter, flushOnAppend bool, logger *zap.SugaredLogger) *ChatService {
	return &ChatService{
		store:         store,
		registry:      reg,
		completer:     completer,
		snapshotter:   snapshotter,
		flushOnAppend: flushOnAppend,
		logger:        logger,
	}
}

type AskRequest struct {
	SessionID string
	Question  string
	Persona   string
	AuthToken string
}

type AskResult struct {
	Answer        string
	SessionID     string
	Authenticated bool
	Username      string
	Persona       string
	QuestionType  string
	History       []domain.Turn
}

// Ask resolves the caller's session, completes the question against the
// model with the session's windowed context, records the new turn and
// returns the updated history. History is only mutated after a successful
// completion, so validation and upstream failures leave no trace.
func (s *ChatService) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, domain.ErrMissingQuestion
	}
	persona := req.Persona
	if persona == "" {
		persona = "default"
	}

	id := s.registry.Resolve(req.SessionID, req.AuthToken)
	turns := s.store.GetTurns(id.SessionID)

	questionType := prompt.ClassifyQuestionType(question)
	system := prompt.BuildSystemPrompt(persona, questionType)
	promptContext := prompt.BuildContext(turns, question)

	answer, err := s.completer.Complete(ctx, system, promptContext)
	if err != nil {
		return nil, err
	}

	updated := s.store.AppendTurn(id.SessionID, question, answer, id.AuthorID)
	s.flushAsync()

	return &AskResult{
		Answer:        answer,
		SessionID:     id.SessionID,
		Authenticated: id.Authenticated(),
		Username:      id.AuthorID,
		Persona:       persona,
		QuestionType:  questionType,
		History:       updated,
	}, nil
}

// History returns the session's turns, empty for unknown sessions.
func (s *ChatService) History(sessionID string) []domain.Turn {
	return s.store.GetTurns(sessionID)
}

// Sessions lists all known session ids.
func (s *ChatService) Sessions() []string {
	return s.store.ListSessionIDs()
}

// ClearHistory empties one session, reporting whether it existed.
func (s *ChatService) ClearHistory(sessionID string) bool {
	existed := s.store.ClearSession(sessionID)
	if existed {
		s.flushAsync()
	}
	return existed
}

// ClearAllHistory empties every session and returns the count affected.
func (s *ChatService) ClearAllHistory() int {
	n := s.store.ClearAll()
	if n > 0 {
		s.flushAsync()
	}
	return n
}

// GenerateSession mints a fresh anonymous session id.
func (s *ChatService) GenerateSession() string {
	return s.registry.Resolve("", "").SessionID
}

// SaveHistories writes the snapshot through the persistence adapter. This
// is the explicit save endpoint, the one place a persistence failure is
// surfaced to the caller.
func (s *ChatService) SaveHistories(ctx context.Context) error {
	if s.snapshotter == nil {
		return nil
	}
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.snapshotter.Save(ctx, s.store.Snapshot())
}

// RestoreHistories loads the persisted snapshot into the store at startup.
// A missing snapshot is a cold start; a corrupt or unreadable one is logged
// and the service starts empty rather than crashing.
func (s *ChatService) RestoreHistories(ctx context.Context) {
	if s.snapshotter == nil {
		return
	}
	snap, err := s.snapshotter.Load(ctx)
	if err != nil {
		s.logger.Errorw("Failed to load chat histories, starting empty", "error", err)
		return
	}
	s.store.Restore(snap)
	s.logger.Infow("Chat histories loaded", "sessions", len(snap))
}

// flushAsync persists the snapshot after a mutation when configured to.
// Fire-and-forget: the request never waits on or fails from persistence.
// Flushes are serialized and each one captures its snapshot under the
// flush lock immediately before writing, so the final Save in any burst
// carries every mutation and a slow flush can never overwrite the result
// of a later one with older state.
func (s *ChatService) flushAsync() {
	if s.snapshotter == nil || !s.flushOnAppend {
		return
	}
	go func() {
		s.flushMu.Lock()
		defer s.flushMu.Unlock()

		snap := s.store.Snapshot()
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := s.snapshotter.Save(ctx, snap); err != nil {
			s.logger.Errorw("Failed to persist chat histories", "error", err)
		}
	}()
}
