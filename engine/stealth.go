package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/fetchkit/parser"
)

// StealthConfig configures the stealth browser engine.
type StealthConfig struct {
	Headless         HeadlessMode
	BlockImages      bool
	DisableResources bool
	BlockWebRTC      bool
	AllowWebGL       bool
	NetworkIdle      bool
	Addons           []string
	Timeout          time.Duration

	PageAction        PageAction
	WaitSelector      string
	WaitSelectorState string

	Humanize     Humanize
	GoogleSearch bool
	ExtraHeaders map[string]string
	Proxy        *Proxy
	OSRandomize  bool

	Parsing parser.Options
}

// Stealth launches a fingerprint-patched browser per fetch. It passes most
// online automation checks: anti-automation launch flags, stealth JS
// injected before navigation, a fabricated search referer and optional OS
// fingerprint randomization.
type Stealth struct {
	cfg StealthConfig
}

// NewStealth creates a stealth browser engine.
func NewStealth(cfg StealthConfig) *Stealth {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.WaitSelectorState == "" {
		cfg.WaitSelectorState = StateAttached
	}
	return &Stealth{cfg: cfg}
}

// Fetch launches the browser, drives the page and normalizes the result.
// Launch or navigation failures surface unchanged; there are no retries.
func (e *Stealth) Fetch(ctx context.Context, target string) (*parser.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	l := stealthLauncher(e.cfg.Headless, e.cfg.Proxy)
	if e.cfg.BlockWebRTC {
		l.Set(flags.Flag("webrtc-ip-handling-policy"), "disable_non_proxied_udp")
		l.Set(flags.Flag("force-webrtc-ip-handling-policy"))
	}
	if !e.cfg.AllowWebGL {
		l.Set(flags.Flag("disable-webgl"))
		l.Set(flags.Flag("disable-webgl2"))
	}
	if len(e.cfg.Addons) > 0 {
		l.Set(flags.Flag("load-extension"), strings.Join(e.cfg.Addons, ","))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("stealth: launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("stealth: connect to browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			slog.Warn("stealth: browser close failed", "error", err)
		}
		l.Cleanup()
	}()

	if e.cfg.Proxy != nil && e.cfg.Proxy.Username != "" {
		go func() {
			_ = browser.HandleAuth(e.cfg.Proxy.Username, e.cfg.Proxy.Password)()
		}()
	}

	// stealth.Page injects the evasion JS before any navigation happens.
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("stealth: create page: %w", err)
	}

	if e.cfg.OSRandomize {
		randomizeOS(page)
	}

	if router := mountHijack(page, blockedTypes(e.cfg.BlockImages, e.cfg.DisableResources)); router != nil {
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
		Humanize:          e.cfg.Humanize,
	}
	return v.run(ctx, page, e.cfg.Parsing)
}

// stealthLauncher builds a launcher with the anti-automation flag set shared
// by the browser engines.
func stealthLauncher(mode HeadlessMode, proxy *Proxy) *launcher.Launcher {
	l := launcher.New()

	switch mode {
	case HeadlessOff:
		l.Headless(false)
	case HeadlessVirtual:
		l.Headless(false).XVFB()
	default:
		l.Headless(true)
	}
	if proxy != nil {
		l.Proxy(proxy.Server)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))

	return l
}

// osFingerprints pairs user agents with the platform value navigator reports.
var osFingerprints = []struct {
	UA       string
	Platform string
}{
	{chromeUA, "Win32"},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36", "MacIntel"},
	{"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36", "Linux x86_64"},
}

// randomizeOS overrides the OS parts of the fingerprint instead of matching
// the host machine.
func randomizeOS(page *rod.Page) {
	fp := osFingerprints[rand.Intn(len(osFingerprints))]
	_ = proto.NetworkSetUserAgentOverride{
		UserAgent: fp.UA,
		Platform:  fp.Platform,
	}.Call(page)
}
