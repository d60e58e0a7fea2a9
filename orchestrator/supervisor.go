package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"promptbuddies/storage"
)

// Session is one attempt: an orchestrator plus the resources it owns.
type Session struct {
	Orchestrator *Orchestrator
	// Transcript reports where the session is being written.
	Transcript interface {
		Path() string
		ConversationID() string
	}
	// Close releases the browser and anything else the factory opened.
	Close func() error
}

// SessionFactory builds a fresh session: new browser, new history, new
// transcript. It is called again after every failure.
type SessionFactory func(ctx context.Context) (*Session, error)

// Ledger records session attempts.
type Ledger interface {
	Begin(transcriptPath string) (storage.Run, error)
	End(run storage.Run) error
}

// SupervisorConfig bounds the restart loop.
type SupervisorConfig struct {
	// MaxRestarts is the number of restarts before giving up. Zero means
	// unlimited.
	MaxRestarts  int
	RestartDelay time.Duration
	// MaxGenerationFailures ends the loop after this many consecutive
	// sessions stopped by ErrGenerationFailed. Zero means unlimited.
	MaxGenerationFailures int
	Logger                *zap.Logger
}

// Supervisor owns the session lifecycle. A failed session is torn down and
// replaced, never resumed.
type Supervisor struct {
	factory SessionFactory
	ledger  Ledger
	cfg     SupervisorConfig
	logger  *zap.Logger
}

func NewSupervisor(factory SessionFactory, ledger Ledger, cfg SupervisorConfig) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		factory: factory,
		ledger:  ledger,
		cfg:     cfg,
		logger:  logger.Named("supervisor"),
	}
}

// Run keeps sessions going until ctx is cancelled (returns nil) or a
// restart limit is reached (returns the last session error).
func (s *Supervisor) Run(ctx context.Context) error {
	restarts, genFailures := 0, 0
	for {
		err := s.runSession(ctx)
		if ctx.Err() != nil {
			s.logger.Info("operator abort, supervisor stopping")
			return nil
		}

		if errors.Is(err, ErrGenerationFailed) {
			genFailures++
			if s.cfg.MaxGenerationFailures > 0 && genFailures >= s.cfg.MaxGenerationFailures {
				return fmt.Errorf("giving up after %d consecutive generation failures: %w", genFailures, err)
			}
		} else {
			genFailures = 0
		}

		restarts++
		if s.cfg.MaxRestarts > 0 && restarts > s.cfg.MaxRestarts {
			return fmt.Errorf("giving up after %d restarts: %w", s.cfg.MaxRestarts, err)
		}

		s.logger.Warn("session ended, restarting",
			zap.Error(err),
			zap.Int("restart", restarts),
			zap.Duration("delay", s.cfg.RestartDelay))
		if err := sleep(ctx, s.cfg.RestartDelay); err != nil {
			return nil
		}
	}
}

// runSession runs one session to completion. Panics inside the session are
// turned into errors so the loop can restart.
func (s *Supervisor) runSession(ctx context.Context) (err error) {
	session, err := s.factory(ctx)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	defer func() {
		if session.Close == nil {
			return
		}
		if cerr := session.Close(); cerr != nil {
			s.logger.Warn("failed to close session", zap.Error(cerr))
		}
	}()

	run := s.begin(session)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session panicked", zap.Any("panic", r))
			err = fmt.Errorf("session panic: %v", r)
		}
		s.end(ctx, run, session, err)
	}()

	s.logger.Info("session started", zap.String("run_id", run.ID))
	return session.Orchestrator.Run(ctx)
}

func (s *Supervisor) begin(session *Session) storage.Run {
	path := ""
	if session.Transcript != nil {
		path = session.Transcript.Path()
	}
	if s.ledger == nil {
		return storage.Run{TranscriptPath: path}
	}
	run, err := s.ledger.Begin(path)
	if err != nil {
		s.logger.Warn("failed to record session start", zap.Error(err))
		return storage.Run{TranscriptPath: path}
	}
	return run
}

func (s *Supervisor) end(ctx context.Context, run storage.Run, session *Session, err error) {
	switch {
	case ctx.Err() != nil:
		run.Status = storage.StatusAborted
	case errors.Is(err, ErrGenerationFailed):
		run.Status = storage.StatusStopped
	default:
		run.Status = storage.StatusFailed
	}
	if err != nil {
		run.Reason = err.Error()
	}
	if session.Transcript != nil {
		run.TranscriptPath = session.Transcript.Path()
		run.ConversationID = session.Transcript.ConversationID()
	}
	if session.Orchestrator != nil {
		run.Turns = session.Orchestrator.Turns()
	}

	s.logger.Info("session ended",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("turns", run.Turns))

	if s.ledger == nil || run.ID == "" {
		return
	}
	if lerr := s.ledger.End(run); lerr != nil {
		s.logger.Warn("failed to record session end", zap.Error(lerr))
	}
}
