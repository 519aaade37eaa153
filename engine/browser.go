package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/fetchkit/parser"
)

// BrowserConfig configures the general browser-automation engine.
type BrowserConfig struct {
	Headless         HeadlessMode
	DisableResources bool
	NetworkIdle      bool
	Timeout          time.Duration

	// UserAgent overrides the browser's default when set.
	UserAgent string

	// HideCanvas adds random noise to canvas reads to prevent
	// fingerprinting.
	HideCanvas bool

	// DisableWebGL turns off WebGL and WebGL 2.0 entirely.
	DisableWebGL bool

	// Stealth applies the same evasion JS and launch flags the stealth
	// engine uses.
	Stealth bool

	// CDPURL attaches to an already-running controllable browser instead of
	// launching one. Closing the engine disconnects without killing it.
	CDPURL string

	// NSTBrowserMode drives a docker-hosted NSTBrowser through CDPURL.
	// Ignored unless CDPURL is set.
	NSTBrowserMode bool

	// NSTBrowserConfig overrides the connect config sent to NSTBrowser.
	NSTBrowserConfig map[string]any

	PageAction        PageAction
	WaitSelector      string
	WaitSelectorState string

	GoogleSearch bool
	ExtraHeaders map[string]string
	Proxy        *Proxy

	Parsing parser.Options
}

// Browser is the general automation engine: vanilla or stealth-toggled
// launches, remote CDP control and the NSTBrowser docker mode.
type Browser struct {
	cfg BrowserConfig
}

// NewBrowser creates a general browser-automation engine.
func NewBrowser(cfg BrowserConfig) *Browser {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.WaitSelectorState == "" {
		cfg.WaitSelectorState = StateAttached
	}
	return &Browser{cfg: cfg}
}

// Fetch attaches to or launches a browser, drives the page and normalizes
// the result.
func (e *Browser) Fetch(ctx context.Context, target string) (*parser.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	if e.cfg.CDPURL != "" {
		return e.fetchAttached(ctx, target)
	}
	return e.fetchLaunched(ctx, target)
}

// fetchAttached connects to a running browser over CDP, creates a temporary
// page and disconnects afterwards without killing the browser process.
func (e *Browser) fetchAttached(ctx context.Context, target string) (*parser.Response, error) {
	controlURL := e.cfg.CDPURL
	if e.cfg.NSTBrowserMode {
		var err error
		controlURL, err = nstConnectURL(e.cfg.CDPURL, e.cfg.NSTBrowserConfig)
		if err != nil {
			return nil, err
		}
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect to CDP URL: %w", err)
	}
	// Close drops the WebSocket but does NOT kill the remote browser.
	defer func() { _ = browser.Close() }()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("browser: create page on CDP browser: %w", err)
	}
	defer func() { _ = page.Close() }()

	return e.drive(ctx, page, target)
}

func (e *Browser) fetchLaunched(ctx context.Context, target string) (*parser.Response, error) {
	var l *launcher.Launcher
	if e.cfg.Stealth {
		l = stealthLauncher(e.cfg.Headless, e.cfg.Proxy)
	} else {
		l = launcher.New().Headless(e.cfg.Headless != HeadlessOff)
		if e.cfg.Headless == HeadlessVirtual {
			l.Headless(false).XVFB()
		}
		if e.cfg.Proxy != nil {
			l.Proxy(e.cfg.Proxy.Server)
		}
	}
	if e.cfg.DisableWebGL {
		l.Set(flags.Flag("disable-webgl"))
		l.Set(flags.Flag("disable-webgl2"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			slog.Warn("browser: close failed", "error", err)
		}
		l.Cleanup()
	}()

	if e.cfg.Proxy != nil && e.cfg.Proxy.Username != "" {
		go func() {
			_ = browser.HandleAuth(e.cfg.Proxy.Username, e.cfg.Proxy.Password)()
		}()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	return e.drive(ctx, page, target)
}

// drive applies the per-page knobs and runs the shared visit sequence.
func (e *Browser) drive(ctx context.Context, page *rod.Page, target string) (*parser.Response, error) {
	if e.cfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("browser: stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	if e.cfg.UserAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{UserAgent: e.cfg.UserAgent}.Call(page)
	}
	if e.cfg.HideCanvas {
		if _, err := page.EvalOnNewDocument(canvasNoiseJS); err != nil {
			slog.Warn("browser: canvas noise injection failed", "error", err)
		}
	}
	if e.cfg.DisableWebGL {
		// Covers the CDP-attach path, where launch flags are unavailable.
		if _, err := page.EvalOnNewDocument(disableWebGLJS); err != nil {
			slog.Warn("browser: webgl disable injection failed", "error", err)
		}
	}

	if router := mountHijack(page, blockedTypes(false, e.cfg.DisableResources)); router != nil {
		defer func() { _ = router.Stop() }()
	}

	v := &visit{
		Target:            target,
		NetworkIdle:       e.cfg.NetworkIdle,
		WaitSelector:      e.cfg.WaitSelector,
		WaitSelectorState: e.cfg.WaitSelectorState,
		PageAction:        e.cfg.PageAction,
		ExtraHeaders:      e.cfg.ExtraHeaders,
		GoogleSearch:      e.cfg.GoogleSearch,
		Humanize:          Humanize{},
	}
	return v.run(ctx, page, e.cfg.Parsing)
}

// defaultNSTConfig is the connect config sent to a docker-hosted NSTBrowser
// when the caller supplies none: one-shot session, headless, closed when the
// client disconnects.
var defaultNSTConfig = map[string]any{
	"once":      true,
	"headless":  true,
	"autoClose": true,
}

// nstConnectURL appends the JSON connect config to the CDP endpoint as the
// config query parameter NSTBrowser expects.
func nstConnectURL(cdpURL string, config map[string]any) (string, error) {
	merged := make(map[string]any, len(defaultNSTConfig)+len(config))
	for k, v := range defaultNSTConfig {
		merged[k] = v
	}
	for k, v := range config {
		merged[k] = v
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return "", fmt.Errorf("browser: encode nstbrowser config: %w", err)
	}

	u, err := url.Parse(cdpURL)
	if err != nil {
		return "", fmt.Errorf("browser: invalid CDP URL: %w", err)
	}
	q := u.Query()
	q.Set("config", string(payload))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// canvasNoiseJS perturbs canvas reads by a sub-visible amount so repeated
// renders never hash to the same fingerprint.
const canvasNoiseJS = `() => {
	const shift = () => (Math.random() < 0.5 ? -1 : 1) * Math.floor(Math.random() * 3);
	const original = HTMLCanvasElement.prototype.toDataURL;
	HTMLCanvasElement.prototype.toDataURL = function (...args) {
		try {
			const ctx = this.getContext('2d');
			if (ctx && this.width > 0 && this.height > 0) {
				const data = ctx.getImageData(0, 0, this.width, this.height);
				for (let i = 0; i < data.data.length; i += 997) {
					data.data[i] = Math.min(255, Math.max(0, data.data[i] + shift()));
				}
				ctx.putImageData(data, 0, 0);
			}
		} catch (e) {}
		return original.apply(this, args);
	};
}`

// disableWebGLJS makes WebGL context creation fail the way browsers without
// GPU support do.
const disableWebGLJS = `() => {
	const block = ['webgl', 'webgl2', 'experimental-webgl'];
	const original = HTMLCanvasElement.prototype.getContext;
	HTMLCanvasElement.prototype.getContext = function (type, ...rest) {
		if (block.includes(String(type).toLowerCase())) return null;
		return original.call(this, type, ...rest);
	};
}`
