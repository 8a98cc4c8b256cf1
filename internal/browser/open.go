package browser

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/v0xg/clockin/internal/config"
	"go.uber.org/zap"
)

// Options configures the browser launch.
type Options struct {
	Driver            string
	Bin               string
	Headless          bool
	Stealth           bool
	Width             int
	Height            int
	UserAgent         string
	Locale            string
	ProfileDir        string
	Origin            string
	Geolocation       *Geolocation
	NavigationTimeout time.Duration
}

// Geolocation is the position reported to the page.
type Geolocation struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// OptionsFromConfig maps the browser section of the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Driver:            cfg.Browser.Driver,
		Bin:               cfg.Browser.Bin,
		Headless:          cfg.Browser.Headless,
		Stealth:           cfg.Browser.Stealth,
		Width:             cfg.Browser.Width,
		Height:            cfg.Browser.Height,
		UserAgent:         cfg.Browser.UserAgent,
		Locale:            cfg.Browser.Locale,
		ProfileDir:        cfg.Browser.ProfileDir,
		Origin:            origin(cfg.Site.URL),
		NavigationTimeout: cfg.Timing.NavigationTimeout,
	}
	if g := cfg.Browser.Geolocation; g.Enabled {
		opts.Geolocation = &Geolocation{Latitude: g.Latitude, Longitude: g.Longitude, Accuracy: g.Accuracy}
	}
	return opts
}

// Opener starts a browser session.
type Opener func(ctx context.Context, opts Options, log *zap.Logger) (Session, error)

// Open launches a browser with the configured driver.
func Open(ctx context.Context, opts Options, log *zap.Logger) (Session, error) {
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 60 * time.Second
	}
	log.Info("Launching browser.",
		zap.String("driver", opts.Driver),
		zap.Bool("headless", opts.Headless),
		zap.Bool("stealth", opts.Stealth))

	switch opts.Driver {
	case "", "rod":
		b, err := openRod(ctx, opts, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	case "chromedp":
		if opts.Stealth {
			log.Debug("Stealth page scripts are only available with the rod driver.")
		}
		b, err := openChromedp(ctx, opts, log)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown browser driver %q (supported: rod, chromedp)", opts.Driver)
	}
}

func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
