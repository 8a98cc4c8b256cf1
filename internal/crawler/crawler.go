package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/v0xg/clockin/internal/browser"
)

// maxControls caps the enumeration so a pathological page cannot flood the report
const maxControls = 300

// Controls enumerates every visible interactive element on the page
func Controls(ctx context.Context, page browser.Page) ([]Control, error) {
	var controls []Control
	if err := page.Evaluate(ctx, controlsScript, &controls, maxControls); err != nil {
		return nil, fmt.Errorf("enumerate controls: %w", err)
	}
	return controls, nil
}

// WaitForControls polls until at least one visible control appears or timeout.
// SPA dashboards render their toolbar after the load event.
func WaitForControls(ctx context.Context, page browser.Page, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	checkInterval := 200 * time.Millisecond

	for {
		var count int
		if err := page.Evaluate(ctx, countScript, &count); err != nil {
			return 0, err
		}
		if count > 0 || !time.Now().Before(deadline) {
			return count, nil
		}
		if err := page.Sleep(ctx, checkInterval); err != nil {
			return 0, err
		}
	}
}

const countScript = `() => {
	let visible = 0;
	document.querySelectorAll('button, [role="button"], input[type="submit"], a[href]').forEach(el => {
		if (el.offsetParent) visible++;
	});
	return visible;
}`

const controlsScript = `(limit) => {
	const controls = [];
	const seen = new Set();

	// CSS class names can't start with a digit or hyphen followed by digit
	function isValidCSSClass(cls) {
		if (!cls || cls.length === 0) return false;
		if (/^[0-9]/.test(cls)) return false;
		if (/^-[0-9]/.test(cls)) return false;
		if (/[.:#\[\]()>~+*\/\\]/.test(cls)) return false;
		return true;
	}

	function getSelector(el) {
		if (el.id && isValidCSSClass(el.id)) return '#' + el.id;
		if (el.name) return el.tagName.toLowerCase() + '[name="' + el.name + '"]';
		const tip = el.getAttribute('data-original-title');
		if (tip) return el.tagName.toLowerCase() + '[data-original-title="' + tip + '"]';

		if (el.className && typeof el.className === 'string') {
			const valid = el.className.trim().split(/\s+/).filter(isValidCSSClass).slice(0, 2);
			if (valid.length > 0) {
				const selector = el.tagName.toLowerCase() + '.' + valid.join('.');
				try {
					if (document.querySelectorAll(selector).length === 1) return selector;
				} catch (e) {}
			}
		}

		const parent = el.parentElement;
		if (parent && parent !== document.body) {
			const index = Array.from(parent.children).indexOf(el) + 1;
			return getSelector(parent) + ' > ' + el.tagName.toLowerCase() + ':nth-child(' + index + ')';
		}
		return el.tagName.toLowerCase();
	}

	const query = 'button, [role="button"], a[href], input:not([type="hidden"]), select, textarea, [data-original-title], [onclick]';
	for (const el of document.querySelectorAll(query)) {
		if (controls.length >= limit) break;
		if (!el.offsetParent && window.getComputedStyle(el).position !== 'fixed') continue;
		const selector = getSelector(el);
		if (seen.has(selector)) continue;
		seen.add(selector);
		controls.push({
			tag: el.tagName.toLowerCase(),
			id: el.id || '',
			classes: typeof el.className === 'string' ? el.className.trim() : '',
			name: el.getAttribute('name') || '',
			type: el.getAttribute('type') || '',
			text: (el.textContent || el.value || '').trim().replace(/\s+/g, ' ').slice(0, 50),
			title: el.getAttribute('title') || el.getAttribute('data-original-title') || '',
			selector: selector
		});
	}
	return controls;
}`
