package executor

import (
	"fmt"
	"slices"

	"github.com/v0xg/clockin/internal/config"
)

// LocatorRevision is the site markup the built-in table was last checked
// against. Bump it when rows change.
const LocatorRevision = "2025-01-workday"

// Spec is the row of the locator table for one action. Candidates are
// tried in order and must address elements with click semantics of their
// own: a bare icon is never a candidate, its button is.
type Spec struct {
	Candidates           []string
	RequiresConfirmation bool
}

// Table holds every action's row plus the page-wide locator lists.
type Table struct {
	Revision string
	Actions  map[Action]Spec
	// Overlays are "processing" layers that block interaction while shown.
	Overlays []string
	Confirm  []string
	Cancel   []string
}

// DefaultTable returns a fresh copy of the built-in table. Rows list the
// current toolbar first, then the older working-state ids, then icon
// buttons.
func DefaultTable() Table {
	return Table{
		Revision: LocatorRevision,
		Actions: map[Action]Spec{
			Start: {
				Candidates: []string{
					"#btn-start-workday",
					"button[data-original-title='Empezar']",
					"#btn-start-working",
					"button:has(> i.fa-play)",
				},
				RequiresConfirmation: true,
			},
			Pause: {
				Candidates: []string{
					"#btn-pause-workday",
					"button[data-original-title='Pausa General']",
					"#btn-food-working",
					"#btn-pause-working",
					"button:has(> i.fa-utensils)",
					"button:has(> i.fa-cutlery)",
				},
			},
			Resume: {
				Candidates: []string{
					"#btn-resume-workday",
					"button[data-original-title='Reanudar']",
					"#btn-resume-working",
					"button:has(> i.fa-redo)",
					"button:has(> i.fa-sync)",
				},
			},
			End: {
				Candidates: []string{
					"#btn-stop-workday",
					"button[data-original-title='Finalizar']",
					"#btn-stop-working",
					"button:has(> i.fa-stop)",
				},
			},
		},
		Overlays: []string{".blockUI.blockOverlay", "#loading-overlay", ".loading-overlay"},
		Confirm:  []string{"div.sweet-alert button.confirm", "button.confirm", "button.swal2-confirm"},
		Cancel:   []string{"div.sweet-alert button.cancel", "button.cancel", "button.swal2-cancel"},
	}
}

// NewTable applies configured overrides on top of the built-in table. A
// non-empty candidate list replaces the row's list; it never merges.
func NewTable(cfg config.LocatorConfig) (Table, error) {
	t := DefaultTable()
	for name, override := range cfg.Actions {
		action, err := ParseAction(name)
		if err != nil {
			return Table{}, fmt.Errorf("locators.actions: %w", err)
		}
		spec := t.Actions[action]
		if len(override.Candidates) > 0 {
			spec.Candidates = slices.Clone(override.Candidates)
			t.Revision = LocatorRevision + "+config"
		}
		if override.RequiresConfirmation != nil {
			spec.RequiresConfirmation = *override.RequiresConfirmation
			t.Revision = LocatorRevision + "+config"
		}
		t.Actions[action] = spec
	}
	if len(cfg.Overlays) > 0 {
		t.Overlays = slices.Clone(cfg.Overlays)
	}
	if len(cfg.Confirm) > 0 {
		t.Confirm = slices.Clone(cfg.Confirm)
	}
	if len(cfg.Cancel) > 0 {
		t.Cancel = slices.Clone(cfg.Cancel)
	}
	return t, nil
}

// Spec returns the row for a.
func (t Table) Spec(a Action) (Spec, error) {
	spec, ok := t.Actions[a]
	if !ok || len(spec.Candidates) == 0 {
		return Spec{}, fmt.Errorf("no locators for %s", a)
	}
	return spec, nil
}
