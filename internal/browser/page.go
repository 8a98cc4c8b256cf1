package browser

import (
	"context"
	"time"
)

// Presence is the state of a selector on the page.
type Presence int

const (
	Absent Presence = iota
	Hidden
	Visible
)

func (p Presence) String() string {
	switch p {
	case Hidden:
		return "hidden"
	case Visible:
		return "visible"
	default:
		return "absent"
	}
}

// Probe describes the first element matching a selector.
type Probe struct {
	Presence Presence
	Tag      string
	Role     string
	Type     string
}

// Activatable reports whether the element has click semantics of its own.
// Decorative nodes such as icon <i> or <span> elements do not.
func (p Probe) Activatable() bool {
	switch p.Tag {
	case "button", "a", "summary":
		return true
	case "input":
		switch p.Type {
		case "button", "submit", "image", "reset":
			return true
		}
		return false
	}
	return p.Role == "button" || p.Role == "link" || p.Role == "menuitem"
}

// Rect is an element bounding box in CSS pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the click point of the rectangle.
func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// ElementReport is what the page knew about an element right before
// it was activated.
type ElementReport struct {
	Selector   string  `json:"selector"`
	Found      bool    `json:"found"`
	Tag        string  `json:"tag,omitempty"`
	ID         string  `json:"id,omitempty"`
	Classes    string  `json:"classes,omitempty"`
	Text       string  `json:"text,omitempty"`
	Display    string  `json:"display,omitempty"`
	Visibility string  `json:"visibility,omitempty"`
	Opacity    string  `json:"opacity,omitempty"`
	Disabled   bool    `json:"disabled"`
	Rect       Rect    `json:"rect"`
	AtPoint    string  `json:"atPoint,omitempty"`
	Covered    bool    `json:"covered"`
	ScrollY    float64 `json:"scrollY"`
}

// Info is the current location of the page.
type Info struct {
	URL   string
	Title string
}

// Page is the set of page-automation primitives the engine needs.
// Every call is bounded by ctx and, where given, its own timeout.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error
	// Probe waits up to timeout for selector to exist and, once it does,
	// for it to become visible.
	Probe(ctx context.Context, selector string, timeout time.Duration) (Probe, error)
	// Fill replaces the value of the input matched by selector.
	Fill(ctx context.Context, selector, value string) error
	// Click performs a native mouse click, waiting up to timeout for the
	// element to be interactable.
	Click(ctx context.Context, selector string, timeout time.Duration) error
	// PressEnter focuses selector and presses Enter.
	PressEnter(ctx context.Context, selector string) error
	// Evaluate runs fn, a JavaScript function expression, with args and
	// decodes its JSON result into out when out is non-nil.
	Evaluate(ctx context.Context, fn string, out any, args ...any) error
	// WaitHidden waits up to timeout for selector to be hidden or removed.
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error
	// WaitIdle waits up to timeout for network activity to settle.
	WaitIdle(ctx context.Context, timeout time.Duration) error
	// Screenshot captures a PNG of the viewport or the full page.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	// Info returns the page URL and title.
	Info(ctx context.Context) (Info, error)
	// Sleep pauses for d unless ctx ends first.
	Sleep(ctx context.Context, d time.Duration) error
}

// Session owns a browser and its single page.
type Session interface {
	Page() Page
	Close() error
}

// Sleep pauses for d unless ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
