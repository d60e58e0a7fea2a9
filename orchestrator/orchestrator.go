// Package orchestrator runs the adversarial conversation: it polls the
// target chat, classifies each new reply, picks a persona and submits the
// next utterance.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"promptbuddies/classify"
	"promptbuddies/generator"
	"promptbuddies/model"
	"promptbuddies/strategy"
	"promptbuddies/transcript"
)

// ResetToken asks the target to restart the conversation.
const ResetToken = "[RESET]"

const (
	footerSeparator    = "=========="
	buttonsInstruction = "Wybierz tekst z przycisków powyżej"
)

// lockoutPatterns mark replies after which the target must be reset.
var lockoutPatterns = []string{
	"Jesteś zablokowany!!!",
	"Komunikat na potrzeby hackatonu:",
}

var (
	// ErrGenerationFailed ends a session whose generator returned the
	// failure sentinel.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrRestartRequested wraps driver faults the session cannot recover
	// from in place.
	ErrRestartRequested = errors.New("session restart requested")
)

// Inbound is the latest rendered turn of the target chat.
type Inbound struct {
	Text    string
	Marker  string
	Buttons []string
}

// Driver reads from and writes to the target chat.
type Driver interface {
	Latest(ctx context.Context) (Inbound, error)
	Send(ctx context.Context, text string) error
}

// Opener writes the session's first utterance.
type Opener interface {
	GenerateFirst(ctx context.Context, seed string) string
}

// Router picks a persona and writes the next utterance.
type Router interface {
	Next(ctx context.Context, history []model.Turn) (string, strategy.Choice)
}

// Recorder receives every message sent or received.
type Recorder interface {
	Record(sender transcript.Sender, content string) error
}

// Config holds the per-session settings.
type Config struct {
	// SystemPrompt leads the history. Generators replace it with their own
	// persona prompt.
	SystemPrompt string
	// Seed stands in for the target's greeting when writing the opening.
	Seed         string
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Orchestrator owns one session's history. It is not safe for concurrent
// use.
type Orchestrator struct {
	driver   Driver
	opener   Opener
	router   Router
	recorder Recorder
	cfg      Config
	logger   *zap.Logger

	history  *model.History
	lastSeen string
	turns    int
	resets   int
}

// New creates an orchestrator for a fresh session.
func New(driver Driver, opener Opener, router Router, recorder Recorder, cfg Config) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		driver:   driver,
		opener:   opener,
		router:   router,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger.Named("orchestrator"),
		history:  model.NewHistory(cfg.SystemPrompt),
	}
}

// History returns a copy of the current history.
func (o *Orchestrator) History() []model.Turn {
	return o.history.Snapshot()
}

// Turns counts the utterances submitted so far, reset tokens included.
func (o *Orchestrator) Turns() int {
	return o.turns
}

// Resets counts the lockouts handled so far.
func (o *Orchestrator) Resets() int {
	return o.resets
}

// Run sends the opening utterance and then answers every new reply until
// ctx is done or the session fails. It returns ctx.Err() on cancellation,
// ErrGenerationFailed when a generator gives up, and an error wrapping
// ErrRestartRequested on driver faults.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.open(ctx); err != nil {
		return o.exitErr(ctx, err)
	}
	for {
		handled, err := o.step(ctx)
		if err != nil {
			return o.exitErr(ctx, err)
		}
		if handled {
			continue
		}
		if err := sleep(ctx, o.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// exitErr prefers the cancellation cause: a generator interrupted by ctx
// reports failure, but the operator asked to stop.
func (o *Orchestrator) exitErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func (o *Orchestrator) open(ctx context.Context) error {
	baseline, err := o.driver.Latest(ctx)
	if err != nil {
		return fmt.Errorf("%w: read latest message: %w", ErrRestartRequested, err)
	}
	o.lastSeen = baseline.Text

	opening := o.opener.GenerateFirst(ctx, o.cfg.Seed)
	if opening == generator.FailureSentinel {
		return fmt.Errorf("%w: opening utterance", ErrGenerationFailed)
	}
	o.logger.Info("sending opening utterance")
	return o.submit(ctx, opening, true)
}

// step polls once. It reports whether a new reply was answered.
func (o *Orchestrator) step(ctx context.Context) (bool, error) {
	in, err := o.driver.Latest(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: read latest message: %w", ErrRestartRequested, err)
	}
	if in.Text == o.lastSeen {
		return false, nil
	}

	kind := classify.Classify(in.Marker)
	switch kind {
	case classify.Unknown:
		o.logger.Debug("waiting for response", zap.String("marker", in.Marker))
		return false, nil
	case classify.Buttons:
		return true, o.answer(ctx, in, true)
	default:
		return true, o.answer(ctx, in, false)
	}
}

func (o *Orchestrator) answer(ctx context.Context, in Inbound, withButtons bool) error {
	o.record(transcript.Bot, in.Text)
	o.history.Append(model.Theirs, inboundContent(in, withButtons))

	if lockedOut(in.Text) {
		o.logger.Warn("lockout detected, resetting conversation",
			zap.Int("exchanges", o.history.Exchanges()))
		if err := o.submit(ctx, ResetToken, false); err != nil {
			return err
		}
		o.lastSeen = in.Text
		o.history = model.NewHistory(o.cfg.SystemPrompt)
		o.resets++
		return nil
	}

	utterance, choice := o.router.Next(ctx, o.history.Snapshot())
	if utterance == generator.FailureSentinel {
		return fmt.Errorf("%w: %s persona", ErrGenerationFailed, choice)
	}
	if err := o.submit(ctx, utterance, true); err != nil {
		return err
	}
	o.lastSeen = in.Text
	return nil
}

// submit sends text. The transcript and history only grow once the driver
// has accepted it.
func (o *Orchestrator) submit(ctx context.Context, text string, remember bool) error {
	if err := o.driver.Send(ctx, text); err != nil {
		return fmt.Errorf("%w: send message: %w", ErrRestartRequested, err)
	}
	o.record(transcript.User, text)
	o.turns++
	if remember {
		o.history.Append(model.Ours, text)
	}
	return nil
}

func (o *Orchestrator) record(sender transcript.Sender, content string) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Record(sender, content); err != nil {
		o.logger.Warn("failed to write transcript", zap.Error(err))
	}
}

// inboundContent strips the metadata footer and, for button replies,
// lists the choices.
func inboundContent(in Inbound, withButtons bool) string {
	text, _, _ := strings.Cut(in.Text, footerSeparator)
	text = strings.TrimSpace(text)
	if !withButtons {
		return text
	}

	var sb strings.Builder
	sb.WriteString(text)
	if text != "" {
		sb.WriteString("\n")
	}
	for i, label := range in.Buttons {
		fmt.Fprintf(&sb, "Przycisk %d - %s\n", i+1, label)
	}
	sb.WriteString("\n")
	sb.WriteString(buttonsInstruction)
	return sb.String()
}

func lockedOut(text string) bool {
	for _, p := range lockoutPatterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
