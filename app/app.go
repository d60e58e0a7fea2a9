// Package app wires configuration into running sessions.
package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"promptbuddies/browser"
	"promptbuddies/config"
	"promptbuddies/generator"
	"promptbuddies/mcp"
	"promptbuddies/model"
	"promptbuddies/orchestrator"
	"promptbuddies/persona"
	"promptbuddies/provider"
	"promptbuddies/storage"
	"promptbuddies/strategy"
	"promptbuddies/tools"
	"promptbuddies/transcript"
)

// Driver is a chat connection the app can open and tear down.
type Driver interface {
	orchestrator.Driver
	Open(ctx context.Context) error
	Close() error
}

// Options replace the real backends, mostly for tests.
type Options struct {
	NewProvider func(provider.Config) (model.Provider, error)
	NewDriver   func(browser.Options) Driver
	Rand        *rand.Rand
	Now         func() time.Time
}

// App holds what outlives a single session: the persona catalog and the
// tool runner.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	opts   Options

	catalog *persona.Catalog
	runner  generator.ToolRunner
	schemas []mcptypes.Tool
	closers []func() error
}

// New loads the persona catalog and starts the tool runner.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NewProvider == nil {
		opts.NewProvider = provider.NewProvider
	}
	if opts.NewDriver == nil {
		opts.NewDriver = func(o browser.Options) Driver { return browser.New(o) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		seed := uint64(opts.Now().UnixNano())
		opts.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}

	a := &App{cfg: cfg, logger: logger, opts: opts}

	catalog, err := LoadCatalog(cfg, opts.Rand)
	if err != nil {
		return nil, err
	}
	a.catalog = catalog

	if err := a.startTools(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// LoadCatalog returns the configured persona catalog, or the built-in one.
func LoadCatalog(cfg *config.Config, rnd *rand.Rand) (*persona.Catalog, error) {
	if dir := cfg.CatalogDir(); dir != "" {
		c, err := persona.LoadCatalog(dir, rnd)
		if err != nil {
			return nil, fmt.Errorf("failed to load persona catalog: %w", err)
		}
		return c, nil
	}
	return persona.DefaultCatalog(rnd)
}

// NewBackend builds the in-process tool backend from the [tools] section.
func NewBackend(cfg *config.Config, logger *zap.Logger) *tools.Backend {
	return tools.NewBackend(tools.Options{
		TransactionsPath: cfg.TransactionsPath(),
		SkipRows:         cfg.Tools.SkipRows,
		Logger:           logger,
	})
}

func (a *App) startTools(ctx context.Context) error {
	if !a.cfg.Tools.Enabled {
		a.logger.Info("tools disabled")
		return nil
	}
	if a.cfg.Tools.Command == "" {
		backend := NewBackend(a.cfg, a.logger)
		a.runner = backend
		a.schemas = backend.Schemas()
		return nil
	}

	client, err := mcp.DialStdio(ctx, a.cfg.Tools.Command, a.cfg.Tools.Args, nil)
	if err != nil {
		return fmt.Errorf("failed to start tool server: %w", err)
	}
	a.runner = client
	a.schemas = client.Schemas()
	a.closers = append(a.closers, client.Close)
	a.logger.Info("using external tool server",
		zap.String("command", a.cfg.Tools.Command),
		zap.Int("tools", len(a.schemas)))
	return nil
}

// Personas renders the cooperative and adversarial personas. Prompts are
// sampled again on every call.
func (a *App) Personas() (cooperative, adversarial persona.Persona, err error) {
	p := a.cfg.Personas
	cooperative, err = a.catalog.Build("cooperative", p.Cooperative, p.AddExamples, a.schemas)
	if err != nil {
		return persona.Persona{}, persona.Persona{}, fmt.Errorf("cooperative persona: %w", err)
	}
	adversarial, err = a.catalog.Build("adversarial", p.Adversarial, p.AddExamples, a.schemas)
	if err != nil {
		return persona.Persona{}, persona.Persona{}, fmt.Errorf("adversarial persona: %w", err)
	}
	return cooperative, adversarial, nil
}

// NewSession builds everything one attempt needs and opens the chat. It
// satisfies orchestrator.SessionFactory.
func (a *App) NewSession(ctx context.Context) (*orchestrator.Session, error) {
	cooperative, adversarial, err := a.Personas()
	if err != nil {
		return nil, err
	}

	genCfg := a.cfg.GenerationProvider()
	coopProvider, err := a.opts.NewProvider(genCfg)
	if err != nil {
		return nil, fmt.Errorf("generation provider: %w", err)
	}
	advProvider, err := a.opts.NewProvider(genCfg)
	if err != nil {
		return nil, fmt.Errorf("generation provider: %w", err)
	}
	judgeProvider, err := a.opts.NewProvider(a.cfg.JudgeProvider())
	if err != nil {
		return nil, fmt.Errorf("judge provider: %w", err)
	}

	genOpts := generator.Options{
		Window:        a.cfg.LLM.Window,
		MaxToolRounds: a.cfg.LLM.MaxToolRounds,
		Logger:        a.logger,
	}
	coopGen := generator.New(cooperative, coopProvider, a.runner, genOpts)
	advGen := generator.New(adversarial, advProvider, a.runner, genOpts)
	router := strategy.NewRouter(strategy.NewSelector(judgeProvider, a.logger), coopGen, advGen, a.logger)

	log, err := transcript.New(a.cfg.TranscriptDir(), a.opts.Now(), a.logger)
	if err != nil {
		return nil, err
	}

	driver := a.opts.NewDriver(browser.Options{
		URL:               a.cfg.Target.URL,
		Login:             a.cfg.Target.Login,
		Password:          a.cfg.Target.Password,
		OTP:               a.cfg.Target.OTP,
		Headless:          a.cfg.Browser.Headless,
		DebuggerURL:       a.cfg.Browser.DebuggerURL,
		Bin:               a.cfg.Browser.Bin,
		NavigationTimeout: a.cfg.NavigationTimeout(),
		Selectors:         a.cfg.Browser.Selectors,
		Logger:            a.logger,
	})
	if err := driver.Open(ctx); err != nil {
		if cerr := driver.Close(); cerr != nil {
			a.logger.Warn("failed to close browser", zap.Error(cerr))
		}
		return nil, fmt.Errorf("open chat: %w", err)
	}

	orch := orchestrator.New(driver, coopGen, router, log, orchestrator.Config{
		SystemPrompt: cooperative.SystemPrompt,
		Seed:         a.cfg.Target.SeedText,
		PollInterval: a.cfg.PollInterval(),
		Logger:       a.logger,
	})
	return &orchestrator.Session{
		Orchestrator: orch,
		Transcript:   log,
		Close:        driver.Close,
	}, nil
}

// Run supervises sessions until ctx is cancelled or a restart limit is
// hit.
func (a *App) Run(ctx context.Context) error {
	if err := config.EnsureDataDirPermissions(a.cfg.DataDir()); err != nil {
		return fmt.Errorf("failed to set data directory permissions: %w", err)
	}
	lock, err := storage.AcquireInstanceLock(a.cfg.DataDir())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			a.logger.Warn("failed to release instance lock", zap.Error(err))
		}
	}()

	store, err := storage.NewRunStore(a.cfg.DataDir())
	if err != nil {
		return err
	}
	defer store.Close()

	sup := orchestrator.NewSupervisor(a.NewSession, store, orchestrator.SupervisorConfig{
		MaxRestarts:           a.cfg.Session.MaxRestarts,
		RestartDelay:          a.cfg.RestartDelay(),
		MaxGenerationFailures: a.cfg.Session.MaxGenerationFailures,
		Logger:                a.logger,
	})
	return sup.Run(ctx)
}

// Close stops the tool server, if one was started.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
