package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// defaultOpTimeout bounds primitives that take no explicit timeout.
const defaultOpTimeout = 10 * time.Second

// RodBrowser wraps the Rod browser and its page.
type RodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *RodPage
	tempDir  bool
}

// Page returns the automation page.
func (b *RodBrowser) Page() Page {
	return b.page
}

// Close cleans up browser resources.
func (b *RodBrowser) Close() error {
	var errs []error
	if b.page != nil && b.page.page != nil {
		if err := b.page.page.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close page: %w", err))
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if b.launcher != nil && b.tempDir {
		b.launcher.Cleanup()
	}
	return errors.Join(errs...)
}

func openRod(ctx context.Context, opts Options, log *zap.Logger) (*RodBrowser, error) {
	path := opts.Bin
	if path == "" {
		path, _ = launcher.LookPath()
	}

	l := launcher.New().
		Context(ctx).
		Bin(path).
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation").
		Set("window-size", fmt.Sprintf("%d,%d", opts.Width, opts.Height))
	if opts.Locale != "" {
		l = l.Set("lang", opts.Locale)
	}
	if opts.ProfileDir != "" {
		l = l.UserDataDir(opts.ProfileDir)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	rb := &RodBrowser{launcher: l, tempDir: opts.ProfileDir == ""}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	rb.browser = b

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		rb.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	rb.page = &RodPage{page: page, navTimeout: opts.NavigationTimeout, log: log}

	if err := rb.page.prepare(b, opts); err != nil {
		rb.Close()
		return nil, err
	}
	return rb, nil
}

// RodPage implements Page on top of a Rod page.
type RodPage struct {
	page       *rod.Page
	navTimeout time.Duration
	log        *zap.Logger
}

func (p *RodPage) prepare(b *rod.Browser, opts Options) error {
	if err := p.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if opts.UserAgent != "" {
		if err := p.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      opts.UserAgent,
			AcceptLanguage: opts.Locale,
		}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}

	if g := opts.Geolocation; g != nil {
		if err := (proto.BrowserGrantPermissions{
			Permissions: []proto.BrowserPermissionType{proto.BrowserPermissionTypeGeolocation},
			Origin:      opts.Origin,
		}).Call(b); err != nil {
			return fmt.Errorf("grant geolocation: %w", err)
		}
		lat, lon, acc := g.Latitude, g.Longitude, g.Accuracy
		if err := (proto.EmulationSetGeolocationOverride{
			Latitude:  &lat,
			Longitude: &lon,
			Accuracy:  &acc,
		}).Call(p.page); err != nil {
			return fmt.Errorf("override geolocation: %w", err)
		}
	}

	go p.page.EachEvent(func(e *proto.RuntimeConsoleAPICalled) {
		parts := make([]string, 0, len(e.Args))
		for _, arg := range e.Args {
			parts = append(parts, arg.Value.String())
		}
		p.log.Debug("Browser console", zap.String("type", string(e.Type)), zap.String("text", strings.Join(parts, " ")))
	})()

	return nil
}

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx).Timeout(p.navTimeout)
	if err := pg.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

func (p *RodPage) Probe(ctx context.Context, selector string, timeout time.Duration) (Probe, error) {
	deadline := time.Now().Add(timeout)

	el, err := p.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return Probe{Presence: Absent}, nil
		}
		return Probe{}, err
	}
	el = el.CancelTimeout().Context(ctx)

	res, err := el.Eval(tagScript)
	if err != nil {
		return Probe{}, fmt.Errorf("inspect %s: %w", selector, err)
	}
	var info probeResult
	if err := decodeRemote(res, &info); err != nil {
		return Probe{}, err
	}
	info.Present = true

	for {
		visible, err := el.Visible()
		if err != nil {
			return Probe{}, fmt.Errorf("visibility of %s: %w", selector, err)
		}
		if visible {
			info.Visible = true
			break
		}
		if !time.Now().Before(deadline) {
			break
		}
		if err := Sleep(ctx, pollInterval); err != nil {
			return Probe{}, err
		}
	}
	return info.toProbe(), nil
}

func (p *RodPage) Fill(ctx context.Context, selector, value string) error {
	el, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("fill %s: %w", selector, err)
	}
	return el.Input(value)
}

func (p *RodPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := p.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *RodPage) PressEnter(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Element(selector)
	if err != nil {
		return fmt.Errorf("press enter %s: %w", selector, err)
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus %s: %w", selector, err)
	}
	return p.page.Keyboard.Type(input.Enter)
}

func (p *RodPage) Evaluate(ctx context.Context, fn string, out any, args ...any) error {
	res, err := p.page.Context(ctx).Timeout(defaultOpTimeout).Eval(fn, args...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decodeRemote(res, out)
}

func (p *RodPage) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	has, el, err := p.page.Context(ctx).Has(selector)
	if err != nil {
		return err
	}
	if !has {
		return nil
	}
	if err := el.Timeout(timeout).WaitInvisible(); err != nil {
		if still, _, _ := p.page.Context(ctx).Has(selector); !still {
			return nil
		}
		return fmt.Errorf("wait hidden %s: %w", selector, err)
	}
	return nil
}

func (p *RodPage) WaitIdle(ctx context.Context, timeout time.Duration) error {
	idleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	p.page.Context(idleCtx).WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	if idleCtx.Err() != nil && ctx.Err() == nil {
		return context.DeadlineExceeded
	}
	return ctx.Err()
}

func (p *RodPage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.page.Context(ctx).Timeout(defaultOpTimeout).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *RodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).Timeout(defaultOpTimeout).HTML()
}

func (p *RodPage) Info(ctx context.Context) (Info, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return Info{}, err
	}
	return Info{URL: info.URL, Title: info.Title}, nil
}

func (p *RodPage) Sleep(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

func decodeRemote(res *proto.RuntimeRemoteObject, out any) error {
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), out); err != nil {
		return fmt.Errorf("decode script result: %w", err)
	}
	return nil
}
