package executor

import (
	"context"
	"errors"
	"time"

	"github.com/v0xg/clockin/internal/browser"
	"go.uber.org/zap"
)

// quickProbe bounds checks for layers that are either there or not.
const quickProbe = 300 * time.Millisecond

// Strategy names how a click was delivered.
type Strategy string

const (
	StrategyDirect   Strategy = "direct"
	StrategyScripted Strategy = "scripted"
)

var errDetached = errors.New("element not in document")

// Trigger activates a resolved control.
type Trigger struct {
	page           browser.Page
	overlays       []string
	overlayTimeout time.Duration
	clickTimeout   time.Duration
	log            *zap.Logger
}

// NewTrigger returns a Trigger that waits on overlays before clicking.
func NewTrigger(page browser.Page, overlays []string, overlayTimeout, clickTimeout time.Duration, log *zap.Logger) *Trigger {
	return &Trigger{
		page:           page,
		overlays:       overlays,
		overlayTimeout: overlayTimeout,
		clickTimeout:   clickTimeout,
		log:            log.Named("trigger"),
	}
}

// Fire delivers exactly one click to selector. A native click is tried
// first; only when it fails is a scripted click dispatched, and only once.
// The element report is taken before either attempt.
func (t *Trigger) Fire(ctx context.Context, selector string) (Strategy, error) {
	log := t.log.With(zap.String("selector", selector))

	t.waitOverlays(ctx)
	el := t.describe(ctx, selector)
	log.Debug("Element before activation.",
		zap.String("tag", el.Tag),
		zap.String("display", el.Display),
		zap.String("visibility", el.Visibility),
		zap.String("opacity", el.Opacity),
		zap.Any("rect", el.Rect),
		zap.String("at_point", el.AtPoint),
		zap.Bool("covered", el.Covered))

	direct := t.page.Click(ctx, selector, t.clickTimeout)
	if direct == nil {
		log.Info("Clicked.", zap.String("strategy", string(StrategyDirect)))
		return StrategyDirect, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	log.Warn("Direct click failed, dispatching scripted click.", zap.Error(direct))

	var clicked bool
	scripted := t.page.Evaluate(ctx, scriptedClickScript, &clicked, selector)
	if scripted == nil && !clicked {
		scripted = errDetached
	}
	if scripted == nil {
		log.Info("Clicked.", zap.String("strategy", string(StrategyScripted)))
		return StrategyScripted, nil
	}

	log.Error("All activation strategies failed.", zap.NamedError("direct", direct), zap.NamedError("scripted", scripted))
	return "", &TriggerError{Selector: selector, Direct: direct, Scripted: scripted, Element: el}
}

// waitOverlays waits for any shown processing overlay to clear. An overlay
// that outlives the timeout is logged and the click is attempted anyway.
func (t *Trigger) waitOverlays(ctx context.Context) {
	for _, sel := range t.overlays {
		probe, err := t.page.Probe(ctx, sel, quickProbe)
		if err != nil || probe.Presence != browser.Visible {
			continue
		}
		t.log.Info("Waiting for overlay to clear.", zap.String("overlay", sel), zap.Duration("timeout", t.overlayTimeout))
		if err := t.page.WaitHidden(ctx, sel, t.overlayTimeout); err != nil {
			t.log.Warn("Overlay still shown.", zap.String("overlay", sel), zap.Error(err))
		}
	}
}

func (t *Trigger) describe(ctx context.Context, selector string) *browser.ElementReport {
	report := &browser.ElementReport{}
	if err := t.page.Evaluate(ctx, describeScript, report, selector); err != nil {
		t.log.Debug("Element report unavailable.", zap.String("selector", selector), zap.Error(err))
		report = &browser.ElementReport{}
	}
	report.Selector = selector
	return report
}

// describeScript reports the element's style, box and whatever sits on its
// center point.
const describeScript = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return { found: false };
	el.scrollIntoView({ block: 'center', inline: 'center' });
	const style = window.getComputedStyle(el);
	const r = el.getBoundingClientRect();
	const top = document.elementFromPoint(r.x + r.width / 2, r.y + r.height / 2);
	const describe = (n) => {
		if (!n) return '';
		let s = n.tagName.toLowerCase();
		if (n.id) s += '#' + n.id;
		if (n.classList.length) s += '.' + Array.from(n.classList).join('.');
		return s;
	};
	return {
		found: true,
		tag: el.tagName.toLowerCase(),
		id: el.id || '',
		classes: el.className && el.className.baseVal === undefined ? el.className : '',
		text: (el.innerText || el.getAttribute('title') || el.getAttribute('data-original-title') || '').trim().slice(0, 80),
		display: style.display,
		visibility: style.visibility,
		opacity: style.opacity,
		disabled: !!el.disabled,
		rect: { x: r.x, y: r.y, width: r.width, height: r.height },
		atPoint: describe(top),
		covered: !!top && top !== el && !el.contains(top),
		scrollY: window.scrollY
	};
}`

// scriptedClickScript clicks without hit-testing; false means the element
// is gone.
const scriptedClickScript = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.click();
	return true;
}`

// highlightScript outlines a control without activating it.
const highlightScript = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return false;
	el.style.outline = '4px solid #dc2626';
	el.style.outlineOffset = '2px';
	el.scrollIntoView({ block: 'center' });
	return true;
}`
