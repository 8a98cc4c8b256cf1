package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/v0xg/clockin/internal/browser"
	"go.uber.org/zap"
)

// Confirmation is the result of the dialog step. Confirmed reports that a
// dialog control matching the run mode was found and clicked: accept in
// Commit mode, cancel in Simulate mode.
type Confirmation struct {
	Required  bool
	Confirmed bool
	Selector  string
}

// Confirmer resolves the dialog raised by actions that ask for one.
type Confirmer struct {
	page         browser.Page
	confirm      []string
	cancel       []string
	wait         time.Duration
	clickTimeout time.Duration
	log          *zap.Logger
}

// NewConfirmer returns a Confirmer that waits up to wait for the dialog.
func NewConfirmer(page browser.Page, confirm, cancel []string, wait, clickTimeout time.Duration, log *zap.Logger) *Confirmer {
	return &Confirmer{
		page:         page,
		confirm:      confirm,
		cancel:       cancel,
		wait:         wait,
		clickTimeout: clickTimeout,
		log:          log.Named("confirm"),
	}
}

// Resolve handles the dialog for spec in mode. Actions that raise no dialog
// return immediately without touching the page. A dialog that never shows
// is not an error. An error means a matching control was found but could
// not be clicked.
func (c *Confirmer) Resolve(ctx context.Context, spec Spec, mode RunMode) (Confirmation, error) {
	if !spec.RequiresConfirmation {
		return Confirmation{}, nil
	}
	result := Confirmation{Required: true}

	controls := c.confirm
	if mode == Simulate {
		controls = c.cancel
	}
	log := c.log.With(zap.String("mode", mode.String()))

	deadline := time.Now().Add(c.wait)
	for {
		for _, sel := range controls {
			probe, err := c.page.Probe(ctx, sel, quickProbe)
			if err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				log.Debug("Dialog probe failed.", zap.String("selector", sel), zap.Error(err))
				continue
			}
			if probe.Presence != browser.Visible {
				continue
			}
			if err := c.click(ctx, sel); err != nil {
				return result, err
			}
			log.Info("Dialog resolved.", zap.String("selector", sel))
			result.Confirmed = true
			result.Selector = sel
			return result, nil
		}
		if !time.Now().Before(deadline) {
			break
		}
		if err := c.page.Sleep(ctx, quickProbe); err != nil {
			return result, err
		}
	}

	log.Warn("No confirmation dialog appeared.", zap.Duration("waited", c.wait))
	return result, nil
}

func (c *Confirmer) click(ctx context.Context, sel string) error {
	direct := c.page.Click(ctx, sel, c.clickTimeout)
	if direct == nil {
		return nil
	}
	c.log.Warn("Dialog click failed, dispatching scripted click.", zap.String("selector", sel), zap.Error(direct))

	var clicked bool
	if err := c.page.Evaluate(ctx, scriptedClickScript, &clicked, sel); err != nil {
		return fmt.Errorf("resolve dialog %s: %w", sel, err)
	}
	if !clicked {
		return fmt.Errorf("resolve dialog %s: %w", sel, errDetached)
	}
	return nil
}
