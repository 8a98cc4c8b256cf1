// Package app runs one clock action end to end: gate, browser, sign-in,
// execution.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"
	"github.com/v0xg/clockin/internal/ai"
	"github.com/v0xg/clockin/internal/auth"
	"github.com/v0xg/clockin/internal/browser"
	"github.com/v0xg/clockin/internal/config"
	"github.com/v0xg/clockin/internal/diagnostics"
	"github.com/v0xg/clockin/internal/executor"
	"github.com/v0xg/clockin/internal/schedule"
	"go.uber.org/zap"
)

// Request is one invocation.
type Request struct {
	Action executor.Action
	Mode   executor.RunMode
	// Force skips the schedule lookup. Weekends and holidays still deny.
	Force bool
}

// Summary is what a run decided and did.
type Summary struct {
	Decision schedule.Decision
	Result   *executor.Result
	RunID    string
}

// Skipped reports whether the gate stopped the run.
func (s *Summary) Skipped() bool {
	return !s.Decision.Permitted
}

// Runner holds the collaborators of a run.
type Runner struct {
	Config *config.Config
	Open   browser.Opener
	Fs     afero.Fs
	Now    func() time.Time
	Log    *zap.Logger
}

// NewRunner returns a Runner on the real filesystem, clock and browser.
func NewRunner(cfg *config.Config, log *zap.Logger) *Runner {
	return &Runner{
		Config: cfg,
		Open:   browser.Open,
		Fs:     afero.NewOsFs(),
		Now:    time.Now,
		Log:    log,
	}
}

// Run executes req. A nil error covers success and every intentional skip:
// gate denial and an action already in its target state. Any other outcome
// is an error, with diagnostics already written when a page was open.
func (r *Runner) Run(ctx context.Context, req Request) (*Summary, error) {
	cfg := r.Config
	log := r.Log.With(zap.String("action", req.Action.String()))
	summary := &Summary{}

	holidays, err := schedule.LoadHolidays(r.Fs, cfg.Files.Holidays, log)
	if err != nil {
		return summary, err
	}
	sched, err := schedule.LoadSchedule(r.Fs, cfg.Files.Schedule, log)
	if err != nil {
		return summary, err
	}
	summary.Decision = schedule.NewGate(holidays, sched, log).Check(req.Action, r.Now(), req.Force)
	if !summary.Decision.Permitted {
		return summary, nil
	}

	if err := cfg.RequireCredentials(); err != nil {
		return summary, err
	}
	table, err := executor.NewTable(cfg.Locators)
	if err != nil {
		return summary, err
	}

	session, err := r.Open(ctx, browser.OptionsFromConfig(cfg), log)
	if err != nil {
		return summary, fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("Browser close failed.", zap.Error(err))
		}
	}()
	page := session.Page()

	rep := diagnostics.New(page, diagnostics.Options{
		Dir:            cfg.Files.DiagnosticsDir,
		Fs:             r.Fs,
		Now:            r.Now,
		Advisor:        r.advisor(log),
		AdvisorTimeout: cfg.Advisor.Timeout,
	}, log.Named("diagnostics"))
	summary.RunID = rep.RunID()
	log = log.With(zap.String("run_id", summary.RunID))

	if err := auth.Login(ctx, page, auth.OptionsFromConfig(cfg), cfg.Credentials, rep, req.Action.String(), log); err != nil {
		return summary, err
	}
	rep.Snapshot(ctx, "after-login")

	ex := executor.New(page, executor.Options{Table: table, Mode: req.Mode, Timing: cfg.Timing}, rep, log)
	summary.Result, err = ex.Execute(ctx, req.Action)
	return summary, err
}

// advisor builds the configured locator advisor. A misconfigured advisor
// only loses suggestions, so the run goes on without one.
func (r *Runner) advisor(log *zap.Logger) ai.Advisor {
	a, err := ai.NewAdvisor(r.Config.Advisor)
	if err != nil {
		log.Warn("Locator advisor disabled.", zap.Error(err))
		return nil
	}
	return a
}
