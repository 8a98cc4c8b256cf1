// Package auth signs in to the time-tracking site.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/v0xg/clockin/internal/browser"
	"github.com/v0xg/clockin/internal/config"
	"github.com/v0xg/clockin/internal/crawler"
	"github.com/v0xg/clockin/internal/diagnostics"
	"go.uber.org/zap"
)

// ErrLoginFailed wraps every sign-in failure.
var ErrLoginFailed = errors.New("login failed")

// bannerProbe bounds checks for controls that usually are not there.
const bannerProbe = time.Second

// cookieLabels are matched against button text when no cookie selector hits.
var cookieLabels = []string{"Aceptar todas", "Aceptar"}

// Options holds the sign-in form locators and waits.
type Options struct {
	URL          string
	Cookie       []string
	Email        []string
	Password     []string
	Submit       []string
	ProbeTimeout time.Duration
	IdleTimeout  time.Duration
}

// OptionsFromConfig maps the site and timing sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		URL:          cfg.Site.URL,
		Cookie:       cfg.Site.Cookie,
		Email:        cfg.Site.Email,
		Password:     cfg.Site.Password,
		Submit:       cfg.Site.Submit,
		ProbeTimeout: cfg.Timing.ProbeTimeout,
		IdleTimeout:  cfg.Timing.LoginIdleTimeout,
	}
}

// Reporter receives the failure context of a sign-in.
type Reporter interface {
	Report(ctx context.Context, rc diagnostics.Context) *diagnostics.Manifest
}

// Login opens the site and submits the credentials. On failure the page is
// reported and the returned error wraps ErrLoginFailed.
func Login(ctx context.Context, page browser.Page, opts Options, creds config.CredentialsConfig, rep Reporter, action string, log *zap.Logger) error {
	log = log.Named("auth")
	err := login(ctx, page, opts, creds, log)
	if err == nil {
		return nil
	}
	err = fmt.Errorf("%w: %w", ErrLoginFailed, err)
	rep.Report(ctx, diagnostics.Context{
		Action:            action,
		Stage:             diagnostics.StageLogin,
		Err:               err,
		EnumerateControls: true,
	})
	return err
}

func login(ctx context.Context, page browser.Page, opts Options, creds config.CredentialsConfig, log *zap.Logger) error {
	log.Info("Opening site.", zap.String("url", opts.URL))
	if err := page.Navigate(ctx, opts.URL); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}

	dismissCookies(ctx, page, opts.Cookie, log)

	emailSel, err := firstVisible(ctx, page, opts.Email, opts.ProbeTimeout)
	if err != nil {
		return err
	}
	if emailSel == "" {
		return fmt.Errorf("no identifier field among %d candidates", len(opts.Email))
	}
	log.Info("Filling credentials.", zap.String("field", emailSel), zap.String("user", mask(creds.Email)))
	if err := page.Fill(ctx, emailSel, creds.Email); err != nil {
		return fmt.Errorf("fill identifier: %w", err)
	}

	pwSel, err := firstVisible(ctx, page, opts.Password, opts.ProbeTimeout)
	if err != nil {
		return err
	}
	if pwSel == "" {
		return fmt.Errorf("no secret field among %d candidates", len(opts.Password))
	}
	if err := page.Fill(ctx, pwSel, creds.Password); err != nil {
		return fmt.Errorf("fill secret: %w", err)
	}

	submitSel, err := firstVisible(ctx, page, opts.Submit, bannerProbe)
	if err != nil {
		return err
	}
	if submitSel != "" {
		log.Info("Submitting.", zap.String("selector", submitSel))
		err = page.Click(ctx, submitSel, opts.ProbeTimeout)
	} else {
		log.Info("No submit control, pressing Enter.")
		err = page.PressEnter(ctx, pwSel)
	}
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	if err := page.WaitIdle(ctx, opts.IdleTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("Network did not settle, continuing.", zap.Error(err))
	}
	n, err := crawler.WaitForControls(ctx, page, opts.IdleTimeout)
	if err != nil {
		return fmt.Errorf("wait for dashboard: %w", err)
	}
	log.Debug("Dashboard controls visible.", zap.Int("count", n))

	probe, err := page.Probe(ctx, pwSel, bannerProbe)
	if err != nil {
		return fmt.Errorf("verify sign-in: %w", err)
	}
	if probe.Presence == browser.Visible {
		return errors.New("still on the sign-in form after submit")
	}
	log.Info("Signed in.")
	return nil
}

// dismissCookies clicks a consent banner when one is shown. It never fails.
func dismissCookies(ctx context.Context, page browser.Page, candidates []string, log *zap.Logger) {
	sel, err := firstVisible(ctx, page, candidates, bannerProbe)
	if err == nil && sel != "" {
		if err := page.Click(ctx, sel, bannerProbe); err == nil {
			log.Info("Cookie banner dismissed.", zap.String("selector", sel))
			return
		}
	}

	var clicked bool
	if err := page.Evaluate(ctx, cookieTextScript, &clicked, cookieLabels); err != nil {
		log.Debug("Cookie text match failed.", zap.Error(err))
		return
	}
	if clicked {
		log.Info("Cookie banner dismissed by label.")
	}
}

// firstVisible returns the first candidate that is visible within timeout,
// or "" when none is.
func firstVisible(ctx context.Context, page browser.Page, candidates []string, timeout time.Duration) (string, error) {
	for _, sel := range candidates {
		probe, err := page.Probe(ctx, sel, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			continue
		}
		if probe.Presence == browser.Visible {
			return sel, nil
		}
	}
	return "", nil
}

func mask(s string) string {
	at := strings.IndexByte(s, '@')
	if at <= 1 {
		return "***"
	}
	return s[:1] + "***" + s[at:]
}

const cookieTextScript = `(labels) => {
	const buttons = Array.from(document.querySelectorAll('button, a[role="button"]'));
	for (const label of labels) {
		const match = buttons.find(b => b.offsetParent && (b.innerText || '').trim() === label);
		if (match) { match.click(); return true; }
	}
	return false;
}`
