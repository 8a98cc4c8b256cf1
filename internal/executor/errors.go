package executor

import (
	"errors"
	"fmt"

	"github.com/v0xg/clockin/internal/browser"
)

// ErrNotFound means no candidate of the action's row exists on the page.
var ErrNotFound = errors.New("no control found for action")

// TriggerError is returned when every activation strategy failed.
type TriggerError struct {
	Selector string
	Direct   error
	Scripted error
	// Element is what the page reported about the target before the
	// first attempt.
	Element *browser.ElementReport
}

func (e *TriggerError) Error() string {
	return fmt.Sprintf("trigger %s: direct click: %v; scripted click: %v", e.Selector, e.Direct, e.Scripted)
}

func (e *TriggerError) Unwrap() []error {
	return []error{e.Direct, e.Scripted}
}
