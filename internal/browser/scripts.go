package browser

import (
	"context"
	"time"
)

// probeScript reports presence, visibility and activation semantics of the
// first element matching a selector.
const probeScript = `(selector) => {
	const el = document.querySelector(selector);
	if (!el) return { present: false };
	const style = window.getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	const visible = style.display !== 'none' &&
		style.visibility !== 'hidden' &&
		parseFloat(style.opacity || '1') > 0 &&
		rect.width > 0 && rect.height > 0;
	return {
		present: true,
		visible: visible,
		tag: el.tagName.toLowerCase(),
		role: el.getAttribute('role') || '',
		type: (el.getAttribute('type') || '').toLowerCase()
	};
}`

// tagScript returns the activation-relevant attributes of an element; rod
// calls it with the element bound to this.
const tagScript = `() => ({
	tag: this.tagName.toLowerCase(),
	role: this.getAttribute('role') || '',
	type: (this.getAttribute('type') || '').toLowerCase()
})`

type probeResult struct {
	Present bool   `json:"present"`
	Visible bool   `json:"visible"`
	Tag     string `json:"tag"`
	Role    string `json:"role"`
	Type    string `json:"type"`
}

func (r probeResult) toProbe() Probe {
	p := Probe{Presence: Absent, Tag: r.Tag, Role: r.Role, Type: r.Type}
	switch {
	case r.Present && r.Visible:
		p.Presence = Visible
	case r.Present:
		p.Presence = Hidden
	}
	return p
}

// pollInterval is how often drivers without native waits re-check the DOM.
const pollInterval = 100 * time.Millisecond

// pollProbe re-runs check until it reports a visible element or the
// deadline passes, and returns the last observation.
func pollProbe(ctx context.Context, timeout time.Duration, check func(context.Context) (probeResult, error)) (Probe, error) {
	deadline := time.Now().Add(timeout)
	var last probeResult
	for {
		res, err := check(ctx)
		if err != nil {
			return Probe{}, err
		}
		last = res
		if res.Present && res.Visible {
			break
		}
		if !time.Now().Before(deadline) {
			break
		}
		if err := Sleep(ctx, pollInterval); err != nil {
			return Probe{}, err
		}
	}
	return last.toProbe(), nil
}
