package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChromedpBrowser owns a chromedp allocator and its single tab.
type ChromedpBrowser struct {
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	page        *ChromedpPage
}

// Page returns the automation page.
func (b *ChromedpBrowser) Page() Page {
	return b.page
}

// Close shuts the tab and the browser process down.
func (b *ChromedpBrowser) Close() error {
	var err error
	if b.page != nil {
		closeCtx, cancel := context.WithTimeout(b.page.tabCtx, 5*time.Second)
		err = chromedp.Cancel(closeCtx)
		cancel()
	}
	if b.cancelTab != nil {
		b.cancelTab()
	}
	if b.cancelAlloc != nil {
		b.cancelAlloc()
	}
	if err != nil && err != context.Canceled {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

func openChromedp(ctx context.Context, opts Options, log *zap.Logger) (*ChromedpBrowser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.Bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.Bin))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Locale != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.Locale))
	}
	if opts.ProfileDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.ProfileDir))
	}

	// The browser outlives individual calls; it is bound to the caller's
	// values but not to per-call deadlines.
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Sugar().Debugf))

	b := &ChromedpBrowser{cancelAlloc: cancelAlloc, cancelTab: cancelTab}
	b.page = &ChromedpPage{tabCtx: tabCtx, navTimeout: opts.NavigationTimeout, log: log}

	chromedp.ListenTarget(tabCtx, func(ev any) {
		if e, ok := ev.(*runtime.EventConsoleAPICalled); ok {
			parts := make([]string, 0, len(e.Args))
			for _, arg := range e.Args {
				parts = append(parts, string(arg.Value))
			}
			log.Debug("Browser console", zap.String("type", e.Type.String()), zap.String("text", strings.Join(parts, " ")))
		}
	})

	setup := chromedp.Tasks{
		emulation.SetDeviceMetricsOverride(int64(opts.Width), int64(opts.Height), 1, false),
	}
	if opts.Locale != "" && opts.UserAgent != "" {
		setup = append(setup, emulation.SetUserAgentOverride(opts.UserAgent).WithAcceptLanguage(opts.Locale))
	}
	if g := opts.Geolocation; g != nil {
		setup = append(setup,
			cdpbrowser.GrantPermissions([]cdpbrowser.PermissionType{cdpbrowser.PermissionTypeGeolocation}).WithOrigin(opts.Origin),
			emulation.SetGeolocationOverride().WithLatitude(g.Latitude).WithLongitude(g.Longitude).WithAccuracy(g.Accuracy),
		)
	}
	setup = append(setup, network.Enable(), runtime.Enable())

	if err := chromedp.Run(tabCtx, setup); err != nil {
		b.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return b, nil
}

// ChromedpPage implements Page on top of a chromedp tab context.
type ChromedpPage struct {
	tabCtx     context.Context
	navTimeout time.Duration
	log        *zap.Logger
}

// run executes actions on the tab, bounded by timeout and by ctx.
func (p *ChromedpPage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *ChromedpPage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, p.navTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (p *ChromedpPage) Probe(ctx context.Context, selector string, timeout time.Duration) (Probe, error) {
	return pollProbe(ctx, timeout, func(ctx context.Context) (probeResult, error) {
		var res probeResult
		err := p.Evaluate(ctx, probeScript, &res, selector)
		return res, err
	})
}

func (p *ChromedpPage) Fill(ctx context.Context, selector, value string) error {
	err := p.run(ctx, defaultOpTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, "", chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return nil
}

func (p *ChromedpPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := p.run(ctx, timeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

func (p *ChromedpPage) PressEnter(ctx context.Context, selector string) error {
	if err := p.run(ctx, defaultOpTimeout, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("press enter %s: %w", selector, err)
	}
	return nil
}

func (p *ChromedpPage) Evaluate(ctx context.Context, fn string, out any, args ...any) error {
	expr, err := callExpression(fn, args)
	if err != nil {
		return err
	}
	var raw []byte
	err = p.run(ctx, defaultOpTimeout, chromedp.Evaluate(expr, &raw, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true)
	}))
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode script result: %w", err)
	}
	return nil
}

func (p *ChromedpPage) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var res probeResult
		if err := p.Evaluate(ctx, probeScript, &res, selector); err != nil {
			return err
		}
		if !res.Present || !res.Visible {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("wait hidden %s: %w", selector, context.DeadlineExceeded)
		}
		if err := Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
}

func (p *ChromedpPage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		var state string
		if err := p.Evaluate(ctx, `() => document.readyState`, &state); err != nil {
			return err
		}
		if state == "complete" {
			// No network idle event here; give late XHRs a short quiet period.
			return Sleep(ctx, 500*time.Millisecond)
		}
		if !time.Now().Before(deadline) {
			return context.DeadlineExceeded
		}
		if err := Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
}

func (p *ChromedpPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// Quality 100 selects PNG encoding.
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := p.run(ctx, defaultOpTimeout, action); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *ChromedpPage) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, defaultOpTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (p *ChromedpPage) Info(ctx context.Context) (Info, error) {
	var info Info
	if err := p.run(ctx, defaultOpTimeout, chromedp.Location(&info.URL), chromedp.Title(&info.Title)); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (p *ChromedpPage) Sleep(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// callExpression turns a function expression and its arguments into a
// self-invoking expression. Undefined results become null so that chromedp
// always has a value to decode.
func callExpression(fn string, args []any) (string, error) {
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("encode script argument: %w", err)
		}
		encoded = append(encoded, string(b))
	}
	return fmt.Sprintf("Promise.resolve((%s)(%s)).then(r => r === undefined ? null : r)", fn, strings.Join(encoded, ", ")), nil
}
