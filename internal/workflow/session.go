package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docrows/constants"
	"github.com/joseph-ayodele/docrows/internal/common"
	"github.com/joseph-ayodele/docrows/internal/entity"
	"github.com/joseph-ayodele/docrows/internal/eventlog"
	"github.com/joseph-ayodele/docrows/internal/projector"
)

// Session owns one workflow State. Operations run one at a time; Snapshot and Cancel
// may be called concurrently with a running operation.
type Session struct {
	id   string
	ctrl *Controller

	opMu sync.Mutex // serializes operations

	mu     sync.RWMutex
	state  State
	cancel context.CancelFunc
}

// NewSession starts an Idle session driven by ctrl.
func NewSession(ctrl *Controller) *Session {
	return &Session{
		id:    uuid.NewString(),
		ctrl:  ctrl,
		state: NewState(),
	}
}

func (s *Session) ID() string { return s.id }

// Log is the session's event log.
func (s *Session) Log() *eventlog.Log { return s.ctrl.Log() }

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Stage is the current workflow stage.
func (s *Session) Stage() constants.Stage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Stage
}

func (s *Session) LoadSchema(src entity.SchemaSource, selection []string) error {
	return s.apply(func(st State) (State, error) { return s.ctrl.LoadSchema(st, src, selection) })
}

func (s *Session) LoadDocuments(docs []entity.Document) error {
	return s.apply(func(st State) (State, error) { return s.ctrl.LoadDocuments(st, docs) })
}

// Extract runs extraction for the loaded documents. The session reads as Extracting
// until the call finishes, fails, times out or is canceled through Cancel or ctx.
func (s *Session) Extract(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	ctx, cancel := context.WithCancel(common.WithSessionID(ctx, s.id))
	defer cancel()

	extracting, err := s.ctrl.BeginExtraction(s.current())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = extracting
	s.cancel = cancel
	s.mu.Unlock()

	next, err := s.ctrl.runExtraction(ctx, extracting)

	s.mu.Lock()
	s.state = next
	s.cancel = nil
	s.mu.Unlock()
	if err != nil {
		s.ctrl.logger.Warn("workflow.session.extract.failed", slog.String("session_id", s.id), slog.Any("err", err))
	}
	return err
}

// Cancel fires the in-flight extraction's cancellation signal. It is a no-op when no
// extraction is running.
func (s *Session) Cancel() {
	s.mu.RLock()
	cancel := s.cancel
	s.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// Commit appends the mapped rows to the dataset.
func (s *Session) Commit() error {
	return s.apply(s.ctrl.Commit)
}

// Reset discards documents and candidates; dropSchema returns the session to Idle.
func (s *Session) Reset(dropSchema bool) error {
	return s.apply(func(st State) (State, error) { return s.ctrl.Reset(st, dropSchema) })
}

// Export serializes the current dataset without changing the stage.
func (s *Session) Export(ctx context.Context) (projector.Artifact, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.ctrl.Export(common.WithSessionID(ctx, s.id), s.current())
}

func (s *Session) apply(op func(State) (State, error)) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	next, err := op(s.current())
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	return nil
}

func (s *Session) current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
