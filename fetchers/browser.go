package fetchers

import (
	"context"
	"time"

	"github.com/use-agent/fetchkit/engine"
	"github.com/use-agent/fetchkit/parser"
	"github.com/use-agent/fetchkit/validate"
)

// StealthyFetcher dispatches through the fingerprint-patched stealth
// browser. It passes most online automation checks out of the box.
type StealthyFetcher struct {
	BaseFetcher
}

// NewStealthyFetcher creates a stealth-browser fetcher.
func NewStealthyFetcher(cfg Config) *StealthyFetcher {
	return &StealthyFetcher{BaseFetcher: newBase(cfg)}
}

// StealthOptions are the per-request knobs of the stealth browser family.
type StealthOptions struct {
	// Headless selects hidden (default), visible, or virtual-display mode.
	Headless engine.HeadlessMode

	// BlockImages prevents image loading. Careful: some sites never finish
	// loading with this on.
	BlockImages bool

	// DisableResources drops font, image, media, beacon, object, imageset,
	// texttrack, websocket, csp_report and stylesheet requests.
	DisableResources bool

	BlockWebRTC bool
	AllowWebGL  bool

	// NetworkIdle waits until the page has no network connections for at
	// least 500ms.
	NetworkIdle bool

	// Addons are paths to extracted browser extensions to load.
	Addons []string

	// TimeoutMs bounds all operations and waits on the page. Default 30000.
	TimeoutMs float64

	// PageAction receives the live page handle for custom automation and
	// must return it. Default is the identity no-op.
	PageAction engine.PageAction

	// WaitSelector blocks until the selector reaches WaitSelectorState
	// (default "attached").
	WaitSelector      string
	WaitSelectorState string

	// Humanize enables humanized cursor movement. Accepts a bool or the
	// max duration in seconds of the movement. Default true.
	Humanize any

	// GoogleSearch fabricates a referer as if the request came from a
	// search of the target's domain. Wins over an extra Referer header.
	// Default true.
	GoogleSearch *bool

	ExtraHeaders map[string]string

	// Proxy is a connection string or an engine.Proxy record.
	Proxy any

	// OSRandomize randomizes the OS fingerprint instead of matching the
	// host machine.
	OSRandomize bool
}

// Fetch opens a stealth browser and performs the request.
func (f *StealthyFetcher) Fetch(ctx context.Context, url string, opts *StealthOptions) (*parser.Response, error) {
	o := StealthOptions{}
	if opts != nil {
		o = *opts
	}
	if o.TimeoutMs <= 0 {
		o.TimeoutMs = 30000
	}

	proxy, err := engine.NormalizeProxy(o.Proxy)
	if err != nil {
		return nil, err
	}

	eng := engine.NewStealth(engine.StealthConfig{
		Headless:          o.Headless,
		BlockImages:       o.BlockImages,
		DisableResources:  o.DisableResources,
		BlockWebRTC:       o.BlockWebRTC,
		AllowWebGL:        o.AllowWebGL,
		NetworkIdle:       o.NetworkIdle,
		Addons:            o.Addons,
		Timeout:           time.Duration(o.TimeoutMs * float64(time.Millisecond)),
		PageAction:        pageActionOr(o.PageAction),
		WaitSelector:      o.WaitSelector,
		WaitSelectorState: o.WaitSelectorState,
		Humanize:          normalizeHumanize(o.Humanize),
		GoogleSearch:      boolOr(o.GoogleSearch, true),
		ExtraHeaders:      o.ExtraHeaders,
		Proxy:             proxy,
		OSRandomize:       o.OSRandomize,
		Parsing:           f.parsing,
	})
	return eng.Fetch(ctx, url)
}

// BrowserFetcher is the general browser-automation family: vanilla or
// stealth-toggled launches, remote CDP control, and the NSTBrowser docker
// mode.
type BrowserFetcher struct {
	BaseFetcher
}

// NewBrowserFetcher creates a general browser-automation fetcher.
func NewBrowserFetcher(cfg Config) *BrowserFetcher {
	return &BrowserFetcher{BaseFetcher: newBase(cfg)}
}

// BrowserOptions are the per-request knobs of the general automation family.
type BrowserOptions struct {
	Headless         engine.HeadlessMode
	DisableResources bool

	// UserAgent overrides the browser's default when set.
	UserAgent string

	NetworkIdle bool

	// TimeoutMs bounds all operations and waits on the page. Default 30000.
	TimeoutMs float64

	PageAction        engine.PageAction
	WaitSelector      string
	WaitSelectorState string

	// HideCanvas adds random noise to canvas reads. Default true.
	HideCanvas *bool

	// DisableWebGL turns off WebGL and WebGL 2.0 entirely.
	DisableWebGL bool

	// GoogleSearch fabricates the search referer. Default true.
	GoogleSearch *bool

	ExtraHeaders map[string]string

	// Proxy is a connection string or an engine.Proxy record.
	Proxy any

	// Stealth enables the evasion JS and launch flags.
	Stealth bool

	// CDPURL attaches to a running browser instead of launching one.
	CDPURL string

	// NSTBrowserMode drives a docker-hosted NSTBrowser through CDPURL;
	// ignored unless CDPURL is set.
	NSTBrowserMode bool

	// NSTBrowserConfig overrides the NSTBrowser connect config.
	NSTBrowserConfig map[string]any
}

// Fetch drives a browser (launched or attached) and performs the request.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string, opts *BrowserOptions) (*parser.Response, error) {
	o := BrowserOptions{}
	if opts != nil {
		o = *opts
	}
	if o.TimeoutMs <= 0 {
		o.TimeoutMs = 30000
	}

	proxy, err := engine.NormalizeProxy(o.Proxy)
	if err != nil {
		return nil, err
	}

	eng := engine.NewBrowser(engine.BrowserConfig{
		Headless:          o.Headless,
		DisableResources:  o.DisableResources,
		NetworkIdle:       o.NetworkIdle,
		Timeout:           time.Duration(o.TimeoutMs * float64(time.Millisecond)),
		UserAgent:         o.UserAgent,
		HideCanvas:        boolOr(o.HideCanvas, true),
		DisableWebGL:      o.DisableWebGL,
		Stealth:           o.Stealth,
		CDPURL:            o.CDPURL,
		NSTBrowserMode:    o.NSTBrowserMode,
		NSTBrowserConfig:  o.NSTBrowserConfig,
		PageAction:        pageActionOr(o.PageAction),
		WaitSelector:      o.WaitSelector,
		WaitSelectorState: o.WaitSelectorState,
		GoogleSearch:      boolOr(o.GoogleSearch, true),
		ExtraHeaders:      o.ExtraHeaders,
		Proxy:             proxy,
		Parsing:           f.parsing,
	})
	return eng.Fetch(ctx, url)
}

// normalizeHumanize resolves the bool-or-seconds humanize spec into one
// internal shape. Invalid kinds are warned about and fall back to the
// default (enabled, default duration).
func normalizeHumanize(v any) engine.Humanize {
	checked, _ := validate.Check(v,
		[]validate.Kind{validate.Nil, validate.Bool, validate.Int, validate.Float},
		true, false, "humanize")

	switch h := checked.(type) {
	case nil:
		return engine.Humanize{Enabled: true}
	case bool:
		return engine.Humanize{Enabled: h}
	case int:
		return engine.Humanize{Enabled: true, MaxSeconds: float64(h)}
	case float64:
		return engine.Humanize{Enabled: true, MaxSeconds: h}
	default:
		return engine.Humanize{Enabled: true}
	}
}

func pageActionOr(a engine.PageAction) engine.PageAction {
	if a == nil {
		return engine.NoAction
	}
	return a
}
