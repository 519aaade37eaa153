package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/fetchkit/parser"
)

// visit is the navigation plan shared by the browser engines.
type visit struct {
	Target            string
	NetworkIdle       bool
	WaitSelector      string
	WaitSelectorState string
	PageAction        PageAction
	ExtraHeaders      map[string]string
	GoogleSearch      bool
	Humanize          Humanize
}

// run drives one page through the navigate → wait → automate → extract
// sequence and normalizes the outcome.
//
// Order matters: headers must be installed before Navigate so they apply to
// the navigation request itself, and the idle waiter must be registered
// before Navigate or in-flight requests would be missed (false idle).
func (v *visit) run(ctx context.Context, page *rod.Page, parsing parser.Options) (*parser.Response, error) {
	p := page.Context(ctx)

	headers := v.ExtraHeaders
	if v.GoogleSearch {
		headers = mergeHeaders(headers, SearchReferer(v.Target))
	}
	if len(headers) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(p)
	}

	var waitIdle func()
	if v.NetworkIdle {
		waitIdle = p.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	}

	if err := p.Navigate(v.Target); err != nil {
		return nil, categorizeError(err, "navigation to target URL failed")
	}

	if waitIdle != nil {
		waitIdle()
	} else if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}

	if v.WaitSelector != "" {
		if err := waitForSelector(p, v.WaitSelector, v.WaitSelectorState); err != nil {
			return nil, categorizeError(err, "wait selector never reached the requested state")
		}
	}

	if v.Humanize.Enabled {
		humanizePointer(p, v.Humanize.MaxSeconds)
	}

	if v.PageAction != nil {
		p = v.PageAction(p)
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, "failed to extract page HTML")
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = v.Target
	}

	return parser.NewResponse(parser.Raw{
		URL:            finalURL,
		Text:           rawHTML,
		Body:           []byte(rawHTML),
		Status:         extractStatus(p),
		Cookies:        pageCookies(p),
		RequestHeaders: headers,
	}, parsing)
}

// waitForSelector blocks until the selector reaches the requested state.
// "attached" (the default) only requires the element to exist in the DOM.
func waitForSelector(p *rod.Page, selector, state string) error {
	el, err := p.Element(selector)
	if err != nil {
		return err
	}
	switch state {
	case StateVisible:
		return el.WaitVisible()
	case StateHidden:
		return el.WaitInvisible()
	default:
		return nil
	}
}

// humanizePointer moves the cursor along a few random linear segments, the
// way a human crosses the window. maxSeconds bounds the whole movement; zero
// means the default 1.5s.
func humanizePointer(p *rod.Page, maxSeconds float64) {
	if maxSeconds <= 0 {
		maxSeconds = 1.5
	}
	deadline := time.Now().Add(time.Duration(maxSeconds * float64(time.Second)))
	for i := 0; i < 3 && time.Now().Before(deadline); i++ {
		to := proto.Point{X: rand.Float64() * 1280, Y: rand.Float64() * 800}
		if err := p.Mouse.MoveLinear(to, 15+rand.Intn(15)); err != nil {
			return
		}
	}
}

// extractStatus reads the navigation's HTTP status via the performance API,
// which needs no CDP event listeners and so cannot conflict with the hijack
// router's use of the Fetch domain.
func extractStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

func pageCookies(p *rod.Page) map[string]string {
	cookies, err := p.Cookies(nil)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(cookies))
	for _, c := range cookies {
		out[c.Name] = c.Value
	}
	return out
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError annotates a backend failure without translating it; the
// original error stays reachable through errors.Is/As.
func categorizeError(err error, msg string) error {
	return fmt.Errorf("%s: %w", msg, err)
}
