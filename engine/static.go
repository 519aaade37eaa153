package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/use-agent/fetchkit/parser"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// maxBodySize caps response reads to prevent unbounded memory use.
const maxBodySize = 10 << 20

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Fallback: if spec generation fails, HelloChrome_Auto is used as-is.
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// StaticConfig configures the synchronous HTTP engine.
type StaticConfig struct {
	// FollowRedirects enables redirect following (up to 10 hops).
	FollowRedirects bool

	// Timeout bounds the whole request.
	Timeout time.Duration

	// Proxy, when set, routes requests through the given server.
	Proxy *Proxy

	// MaxPerSecond paces outgoing requests when positive.
	MaxPerSecond float64

	// Parsing is forwarded into every Response this engine produces.
	Parsing parser.Options
}

// Static performs plain HTTP requests with a Chrome TLS fingerprint.
// It is the fastest backend, suitable for pages that need no JS rendering.
type Static struct {
	cfg     StaticConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewStatic creates a Static engine. ALPN is locked to http/1.1 to avoid the
// HTTP/2 framing mismatch that occurs when utls negotiates h2 but Go's
// http.Transport only speaks h1.
func NewStatic(cfg StaticConfig) *Static {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("static: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	if cfg.Proxy != nil {
		if proxyURL, err := url.Parse(cfg.Proxy.Server); err == nil {
			if cfg.Proxy.Username != "" {
				proxyURL.User = url.UserPassword(cfg.Proxy.Username, cfg.Proxy.Password)
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
	if cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("static: too many redirects")
			}
			return nil
		}
	} else {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var limiter *rate.Limiter
	if cfg.MaxPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxPerSecond), 1)
	}

	return &Static{cfg: cfg, client: client, limiter: limiter}
}

// StaticRequest is one HTTP call.
type StaticRequest struct {
	Method string
	URL    string

	// StealthyHeaders adds a real browser's header set plus a fabricated
	// search-engine referer for the target domain.
	StealthyHeaders bool

	// Headers are caller overrides, applied after the stealthy set.
	Headers map[string]string

	Body        []byte
	ContentType string
}

// Fetch satisfies the Engine contract with a stealthy GET.
func (s *Static) Fetch(ctx context.Context, target string) (*parser.Response, error) {
	return s.Do(ctx, StaticRequest{Method: http.MethodGet, URL: target, StealthyHeaders: true})
}

// Do performs one request and normalizes the transport result. Transport
// errors propagate unchanged; no retries happen at this layer.
func (s *Static) Do(ctx context.Context, req StaticRequest) (*parser.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("static: build request: %w", err)
	}

	if req.StealthyHeaders {
		httpReq.Header.Set("User-Agent", chromeUA)
		httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
		httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
		httpReq.Header.Set("Accept-Encoding", "gzip, deflate")
		httpReq.Header.Set("Cache-Control", "no-cache")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.StealthyHeaders {
		// The fabricated referer wins over a caller-supplied one.
		if ref := SearchReferer(req.URL); ref != "" {
			httpReq.Header.Set("Referer", ref)
		}
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("static: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("static: read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	text, encoding := decodeBody(body, contentType)

	cookies := make(map[string]string, len(resp.Cookies()))
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return parser.NewResponse(parser.Raw{
		URL:            finalURL,
		Text:           text,
		Body:           body,
		Status:         resp.StatusCode,
		Reason:         reasonFromStatus(resp.Status, resp.StatusCode),
		Cookies:        cookies,
		Headers:        flattenHeader(resp.Header),
		RequestHeaders: flattenHeader(httpReq.Header),
		Encoding:       encoding,
	}, s.cfg.Parsing)
}

// decodeBody converts the raw body to a UTF-8 string using the declared or
// sniffed charset, and reports the charset name.
func decodeBody(body []byte, contentType string) (string, string) {
	_, name, _ := charset.DetermineEncoding(body, contentType)
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body), name
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(body), name
	}
	return string(decoded), name
}

// reasonFromStatus strips the numeric prefix from a status line like
// "404 Not Found". An empty result lets the registry derive the phrase.
func reasonFromStatus(statusLine string, code int) string {
	return strings.TrimSpace(strings.TrimPrefix(statusLine, strconv.Itoa(code)))
}

func flattenHeader(h http.Header) map[string]string {
	flat := make(map[string]string, len(h))
	for k, vs := range h {
		flat[k] = strings.Join(vs, ", ")
	}
	return flat
}
