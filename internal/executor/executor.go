// Package executor locates, activates and confirms the control for one
// workday action on a signed-in page.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/v0xg/clockin/internal/browser"
	"github.com/v0xg/clockin/internal/config"
	"github.com/v0xg/clockin/internal/diagnostics"
	"go.uber.org/zap"
)

// Reporter records failure context and stage snapshots.
// *diagnostics.Reporter implements it.
type Reporter interface {
	Report(ctx context.Context, rc diagnostics.Context) *diagnostics.Manifest
	Snapshot(ctx context.Context, label string)
	Evidence(ctx context.Context, action string) (string, error)
}

// Options configures an Executor.
type Options struct {
	Table  Table
	Mode   RunMode
	Timing config.TimingConfig
}

// Result describes a finished execution.
type Result struct {
	Action       Action
	Mode         RunMode
	Outcome      Outcome
	Selector     string
	Strategy     Strategy
	Confirmation Confirmation
	// Highlighted is set when a simulated action was outlined instead of
	// clicked.
	Highlighted bool
	Evidence    string
}

// Executor runs the resolve, trigger and confirm steps against one page.
type Executor struct {
	page      browser.Page
	opts      Options
	resolver  *Resolver
	trigger   *Trigger
	confirmer *Confirmer
	reporter  Reporter
	log       *zap.Logger
}

// New wires the pipeline steps to page.
func New(page browser.Page, opts Options, reporter Reporter, log *zap.Logger) *Executor {
	t := opts.Timing
	return &Executor{
		page:      page,
		opts:      opts,
		resolver:  NewResolver(page, t.ProbeTimeout, log),
		trigger:   NewTrigger(page, opts.Table.Overlays, t.OverlayTimeout, t.ClickTimeout, log),
		confirmer: NewConfirmer(page, opts.Table.Confirm, opts.Table.Cancel, t.ConfirmWait, t.ClickTimeout, log),
		reporter:  reporter,
		log:       log.Named("executor"),
	}
}

// Execute performs action. AlreadyInTargetState returns a nil error. Every
// returned error has had its diagnostics written.
func (e *Executor) Execute(ctx context.Context, action Action) (*Result, error) {
	log := e.log.With(zap.String("action", action.String()), zap.String("mode", e.opts.Mode.String()))
	result := &Result{Action: action, Mode: e.opts.Mode}

	spec, err := e.opts.Table.Spec(action)
	if err != nil {
		return result, err
	}
	log.Info("Resolving control.", zap.String("revision", e.opts.Table.Revision), zap.Int("candidates", len(spec.Candidates)))

	res, err := e.resolver.Resolve(ctx, spec.Candidates)
	if err != nil {
		e.report(ctx, action, diagnostics.Context{Stage: diagnostics.StageResolve, Err: err})
		return result, fmt.Errorf("resolve %s: %w", action, err)
	}
	result.Outcome = res.Outcome
	result.Selector = res.Selector

	switch res.Outcome {
	case NotFound:
		err := fmt.Errorf("%s: %w", action, ErrNotFound)
		e.report(ctx, action, diagnostics.Context{
			Stage:             diagnostics.StageResolve,
			Err:               err,
			EnumerateControls: true,
			Candidates:        spec.Candidates,
		})
		return result, err
	case AlreadyInTargetState:
		log.Info("Already in target state, nothing to do.", zap.String("selector", res.Selector))
		return result, nil
	}

	if e.opts.Mode == Simulate && !spec.RequiresConfirmation {
		// Nothing to cancel afterwards, so the click itself is skipped.
		if err := e.page.Evaluate(ctx, highlightScript, nil, res.Selector); err != nil {
			log.Warn("Highlight failed.", zap.Error(err))
		}
		log.Info("Simulated: control highlighted, not clicked.", zap.String("selector", res.Selector))
		result.Highlighted = true
		result.Evidence = e.evidence(ctx, action)
		return result, nil
	}

	e.reporter.Snapshot(ctx, "before-trigger")
	strategy, err := e.trigger.Fire(ctx, res.Selector)
	if err != nil {
		var te *TriggerError
		var el *browser.ElementReport
		if errors.As(err, &te) {
			el = te.Element
		}
		e.report(ctx, action, diagnostics.Context{Stage: diagnostics.StageTrigger, Err: err, Selector: res.Selector, Element: el})
		return result, err
	}
	result.Strategy = strategy
	e.reporter.Snapshot(ctx, "after-trigger")

	conf, err := e.confirmer.Resolve(ctx, spec, e.opts.Mode)
	result.Confirmation = conf
	if err != nil {
		e.report(ctx, action, diagnostics.Context{Stage: diagnostics.StageConfirm, Err: err, Selector: res.Selector})
		return result, err
	}
	if conf.Required && !conf.Confirmed {
		log.Warn("Confirmation expected but not found, continuing.")
	}

	if err := e.page.Sleep(ctx, e.opts.Timing.SettleDelay); err != nil {
		return result, err
	}
	result.Evidence = e.evidence(ctx, action)
	log.Info("Action completed.",
		zap.String("selector", res.Selector),
		zap.String("strategy", string(strategy)),
		zap.Bool("confirmed", conf.Confirmed))
	return result, nil
}

func (e *Executor) evidence(ctx context.Context, action Action) string {
	path, err := e.reporter.Evidence(ctx, action.String())
	if err != nil {
		e.log.Warn("Evidence screenshot failed.", zap.Error(err))
		return ""
	}
	return path
}

func (e *Executor) report(ctx context.Context, action Action, rc diagnostics.Context) {
	rc.Action = action.String()
	e.reporter.Report(ctx, rc)
}
