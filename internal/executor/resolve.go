package executor

import (
	"context"
	"time"

	"github.com/v0xg/clockin/internal/browser"
	"go.uber.org/zap"
)

// Outcome is the result kind of a resolution.
type Outcome int

const (
	NotFound Outcome = iota
	Found
	// AlreadyInTargetState means the top-ranked existing control is hidden,
	// which the site does once the transition has happened.
	AlreadyInTargetState
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case AlreadyInTargetState:
		return "already_in_target_state"
	default:
		return "not_found"
	}
}

// Resolution is what the resolver decided for a candidate list.
type Resolution struct {
	Outcome  Outcome
	Selector string
	Probe    browser.Probe
}

// Resolver walks a candidate list in priority order.
type Resolver struct {
	page    browser.Page
	timeout time.Duration
	log     *zap.Logger
}

// NewResolver returns a resolver that gives each candidate up to timeout.
func NewResolver(page browser.Page, timeout time.Duration, log *zap.Logger) *Resolver {
	return &Resolver{page: page, timeout: timeout, log: log.Named("resolver")}
}

// Resolve stops at the first activatable candidate that exists. A visible
// one is Found; a hidden one ends resolution as AlreadyInTargetState
// without looking at lower-ranked candidates. Elements without click
// semantics are skipped. A probe error is logged and treated as absent
// unless ctx has ended.
func (r *Resolver) Resolve(ctx context.Context, candidates []string) (Resolution, error) {
	for i, sel := range candidates {
		log := r.log.With(zap.String("selector", sel), zap.Int("rank", i))

		probe, err := r.page.Probe(ctx, sel, r.timeout)
		if err != nil {
			if ctx.Err() != nil {
				return Resolution{}, ctx.Err()
			}
			log.Warn("Probe failed, trying next candidate.", zap.Error(err))
			continue
		}

		switch {
		case probe.Presence == browser.Absent:
			log.Debug("Candidate absent.")
			continue
		case !probe.Activatable():
			log.Info("Skipping candidate without click semantics.",
				zap.String("tag", probe.Tag), zap.String("role", probe.Role))
			continue
		case probe.Presence == browser.Hidden:
			log.Info("Candidate present but hidden.", zap.String("outcome", AlreadyInTargetState.String()))
			return Resolution{Outcome: AlreadyInTargetState, Selector: sel, Probe: probe}, nil
		default:
			log.Info("Candidate visible.", zap.String("outcome", Found.String()), zap.String("tag", probe.Tag))
			return Resolution{Outcome: Found, Selector: sel, Probe: probe}, nil
		}
	}
	r.log.Warn("No candidate matched.", zap.Int("candidates", len(candidates)))
	return Resolution{Outcome: NotFound}, nil
}
