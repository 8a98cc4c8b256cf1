// Package diagnostics captures the page state on failure paths so a failed
// run can be analyzed without live access to the target site.
package diagnostics

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"github.com/v0xg/clockin/internal/ai"
	"github.com/v0xg/clockin/internal/browser"
	"github.com/v0xg/clockin/internal/crawler"
	"github.com/v0xg/clockin/internal/gifgen"
	"github.com/v0xg/clockin/internal/overlay"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Stage names the pipeline step that produced a report.
type Stage string

const (
	StageLogin   Stage = "login"
	StageResolve Stage = "resolve"
	StageTrigger Stage = "trigger"
	StageConfirm Stage = "confirm"
	StageDone    Stage = "done"
)

// Context is the structured input of a failure report.
type Context struct {
	Action   string
	Stage    Stage
	Err      error
	Selector string
	Element  *browser.ElementReport
	// EnumerateControls lists every visible control, for when no
	// candidate matched at all.
	EnumerateControls bool
	// Candidates are the locators that failed, passed to the advisor.
	Candidates []string
}

// Manifest is written next to the artifacts of every report.
type Manifest struct {
	RunID      string                 `json:"runId"`
	Action     string                 `json:"action"`
	Stage      Stage                  `json:"stage"`
	Error      string                 `json:"error,omitempty"`
	Selector   string                 `json:"selector,omitempty"`
	URL        string                 `json:"url,omitempty"`
	Title      string                 `json:"title,omitempty"`
	Element    *browser.ElementReport `json:"element,omitempty"`
	Controls   int                    `json:"controls,omitempty"`
	Suggestion *ai.Suggestion         `json:"suggestion,omitempty"`
	Artifacts  []string               `json:"artifacts"`
	Failures   []string               `json:"failures,omitempty"`
	CapturedAt time.Time              `json:"capturedAt"`
}

// Options configures a Reporter.
type Options struct {
	Dir   string
	Fs    afero.Fs
	Now   func() time.Time
	RunID string
	// MaxFrames bounds the stage snapshots kept for the timeline.
	MaxFrames    int
	TimelineHold time.Duration
	// CaptureTimeout bounds a whole report, independent of the run context.
	CaptureTimeout time.Duration
	// Advisor, when set, proposes a locator after a control enumeration.
	Advisor        ai.Advisor
	AdvisorTimeout time.Duration
}

type frame struct {
	label string
	img   image.Image
}

// Reporter writes failure artifacts for one run.
type Reporter struct {
	page browser.Page
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	frames []frame
}

// New returns a Reporter that writes under opts.Dir.
func New(page browser.Page, opts Options, log *zap.Logger) *Reporter {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.MaxFrames <= 0 {
		opts.MaxFrames = 12
	}
	if opts.TimelineHold <= 0 {
		opts.TimelineHold = time.Second
	}
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = 45 * time.Second
	}
	if opts.AdvisorTimeout <= 0 {
		opts.AdvisorTimeout = 30 * time.Second
	}
	return &Reporter{page: page, opts: opts, log: log.With(zap.String("run_id", opts.RunID))}
}

// RunID identifies the run in artifact manifests.
func (r *Reporter) RunID() string {
	return r.opts.RunID
}

// Snapshot keeps a viewport screenshot for the failure timeline. Failures
// are logged at debug level and otherwise ignored.
func (r *Reporter) Snapshot(ctx context.Context, label string) {
	data, err := r.page.Screenshot(ctx, false)
	if err != nil {
		r.log.Debug("Timeline snapshot failed.", zap.String("label", label), zap.Error(err))
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		r.log.Debug("Timeline snapshot not decodable.", zap.String("label", label), zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame{label: label, img: img})
	if len(r.frames) > r.opts.MaxFrames {
		r.frames = r.frames[len(r.frames)-r.opts.MaxFrames:]
	}
}

// Evidence saves a viewport screenshot of a completed action.
func (r *Reporter) Evidence(ctx context.Context, action string) (string, error) {
	data, err := r.page.Screenshot(ctx, false)
	if err != nil {
		return "", fmt.Errorf("evidence screenshot: %w", err)
	}
	if err := r.opts.Fs.MkdirAll(r.opts.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", r.opts.Dir, err)
	}
	path := filepath.Join(r.opts.Dir, r.prefix(action, StageDone)+".png")
	if err := afero.WriteFile(r.opts.Fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	r.log.Info("Evidence screenshot saved.", zap.String("path", path))
	return path, nil
}

// Report captures screenshot, DOM, optional control enumeration, timeline
// and a manifest. Every capture is independent: one failing never stops
// the others.
func (r *Reporter) Report(ctx context.Context, rc Context) *Manifest {
	// Reports are written on the way out of a failed run, often after ctx
	// has been cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.CaptureTimeout)
	defer cancel()

	now := r.opts.Now()
	m := &Manifest{
		RunID:      r.opts.RunID,
		Action:     rc.Action,
		Stage:      rc.Stage,
		Selector:   rc.Selector,
		Element:    rc.Element,
		CapturedAt: now,
	}
	if rc.Err != nil {
		m.Error = rc.Err.Error()
	}
	log := r.log.With(zap.String("action", rc.Action), zap.String("stage", string(rc.Stage)))
	log.Warn("Capturing diagnostics.", zap.Error(rc.Err))

	if err := r.opts.Fs.MkdirAll(r.opts.Dir, 0o755); err != nil {
		log.Error("Diagnostics directory unavailable.", zap.String("dir", r.opts.Dir), zap.Error(err))
		return m
	}
	prefix := filepath.Join(r.opts.Dir, r.prefix(rc.Action, rc.Stage))

	fail := func(what string, err error) {
		log.Warn("Diagnostic capture failed.", zap.String("artifact", what), zap.Error(err))
		m.Failures = append(m.Failures, fmt.Sprintf("%s: %v", what, err))
	}
	write := func(path string, data []byte) {
		if err := afero.WriteFile(r.opts.Fs, path, data, 0o644); err != nil {
			fail(filepath.Base(path), err)
			return
		}
		m.Artifacts = append(m.Artifacts, filepath.Base(path))
		log.Info("Diagnostic artifact written.", zap.String("path", path))
	}

	if info, err := r.page.Info(ctx); err != nil {
		fail("info", err)
	} else {
		m.URL, m.Title = info.URL, info.Title
	}

	if shot, err := r.page.Screenshot(ctx, true); err != nil {
		fail("screenshot", err)
	} else {
		write(prefix+".png", shot)
		if marker, ok := markerFor(rc.Element); ok {
			if annotated, err := overlay.Annotate(shot, marker); err != nil {
				fail("annotated screenshot", err)
			} else {
				write(prefix+"_annotated.png", annotated)
			}
		}
	}

	if html, err := r.page.HTML(ctx); err != nil {
		fail("html", err)
	} else {
		write(prefix+".html", []byte(html))
	}

	if rc.EnumerateControls {
		if controls, err := crawler.Controls(ctx, r.page); err != nil {
			fail("controls", err)
		} else {
			m.Controls = len(controls)
			log.Info("Visible controls on page.", zap.Int("count", len(controls)))
			for _, c := range controls {
				log.Info("Visible control",
					zap.String("tag", c.Tag),
					zap.String("id", c.ID),
					zap.String("classes", c.Classes),
					zap.String("title", c.Title),
					zap.String("text", c.Text),
					zap.String("selector", c.Selector))
			}
			if data, err := json.MarshalIndent(controls, "", "  "); err != nil {
				fail("controls", err)
			} else {
				write(prefix+"_controls.json", data)
			}
			if r.opts.Advisor != nil && len(controls) > 0 {
				page := &crawler.PageMap{URL: m.URL, Title: m.Title, Controls: controls}
				if s, err := r.suggest(ctx, rc, page); err != nil {
					fail("suggestion", err)
				} else {
					m.Suggestion = s
					log.Warn("Advisor proposes a locator; add it to locators.actions to use it.",
						zap.String("selector", s.Selector),
						zap.Float64("confidence", s.Confidence),
						zap.String("reason", s.Reason))
				}
			}
		}
	}

	if err := r.writeTimeline(prefix + "_timeline.gif"); err != nil {
		fail("timeline", err)
	} else if r.frameCount() > 0 {
		m.Artifacts = append(m.Artifacts, filepath.Base(prefix+"_timeline.gif"))
	}

	manifestPath := prefix + "_report.json"
	m.Artifacts = append(m.Artifacts, filepath.Base(manifestPath))
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		log.Error("Manifest encoding failed.", zap.Error(err))
		return m
	}
	if err := afero.WriteFile(r.opts.Fs, manifestPath, data, 0o644); err != nil {
		log.Error("Manifest write failed.", zap.String("path", manifestPath), zap.Error(err))
	}
	return m
}

func (r *Reporter) suggest(ctx context.Context, rc Context, page *crawler.PageMap) (*ai.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.AdvisorTimeout)
	defer cancel()
	return r.opts.Advisor.Suggest(ctx, ai.Request{Action: rc.Action, Candidates: rc.Candidates, Page: page})
}

func (r *Reporter) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *Reporter) writeTimeline(path string) error {
	r.mu.Lock()
	frames := make([]image.Image, 0, len(r.frames))
	labels := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		frames = append(frames, f.img)
		labels = append(labels, f.label)
	}
	r.mu.Unlock()

	if len(frames) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := gifgen.Encode(&buf, frames, gifgen.Options{Hold: r.opts.TimelineHold, MaxWidth: 800}); err != nil {
		return err
	}
	r.log.Debug("Timeline encoded.", zap.Strings("frames", labels))
	return afero.WriteFile(r.opts.Fs, path, buf.Bytes(), 0o644)
}

func (r *Reporter) prefix(action string, stage Stage) string {
	return fmt.Sprintf("%s_%s_%s", strings.ToLower(action), stage, r.opts.Now().Format("20060102_150405"))
}

// markerFor converts an element report to full-page screenshot coordinates.
func markerFor(el *browser.ElementReport) (overlay.Marker, bool) {
	if el == nil || !el.Found || el.Rect.Width <= 0 || el.Rect.Height <= 0 {
		return overlay.Marker{}, false
	}
	x0 := int(el.Rect.X)
	y0 := int(el.Rect.Y + el.ScrollY)
	box := image.Rect(x0, y0, x0+int(el.Rect.Width), y0+int(el.Rect.Height))
	cx, cy := el.Rect.Center()
	return overlay.Marker{Box: box, Point: image.Pt(int(cx), int(cy+el.ScrollY))}, true
}
