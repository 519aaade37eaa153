package fetchers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetcher_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, "<html><head><title>home</title></head><body>hi</body></html>")
	}))
	defer srv.Close()

	f := NewFetcher(Config{})
	resp, err := f.Get(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if resp.Status != 200 || resp.Reason != "OK" {
		t.Errorf("status = %d %q", resp.Status, resp.Reason)
	}
	if resp.Title() != "home" {
		t.Errorf("title = %q", resp.Title())
	}
}

func TestFetcher_MethodDispatch(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
	}))
	defer srv.Close()

	f := NewFetcher(Config{})
	ctx := context.Background()
	if _, err := f.Post(ctx, srv.URL, &RequestOptions{Body: []byte("a=1"), ContentType: "application/x-www-form-urlencoded"}); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if _, err := f.Put(ctx, srv.URL, nil); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if _, err := f.Delete(ctx, srv.URL, nil); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	want := []string{"POST", "PUT", "DELETE"}
	if len(methods) != len(want) {
		t.Fatalf("saw %v", methods)
	}
	for i, m := range want {
		if methods[i] != m {
			t.Errorf("call %d used %s, want %s", i, methods[i], m)
		}
	}
}

func TestFetcher_StealthyHeadersOff(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
	}))
	defer srv.Close()

	off := false
	f := NewFetcher(Config{})
	if _, err := f.Get(context.Background(), srv.URL, &RequestOptions{StealthyHeaders: &off}); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ref := seen.Get("Referer"); ref != "" {
		t.Errorf("stealthy headers disabled, no referer expected, got %q", ref)
	}
	if ua := seen.Get("User-Agent"); strings.Contains(ua, "Chrome/") {
		t.Errorf("stealthy headers disabled, browser UA unexpected: %q", ua)
	}
}

func TestFetcher_BadProxyRejectedBeforeNetwork(t *testing.T) {
	f := NewFetcher(Config{})
	_, err := f.Get(context.Background(), "http://unused.invalid", &RequestOptions{Proxy: 42})
	if err == nil {
		t.Fatal("expected a proxy shape error")
	}
	if !strings.Contains(err.Error(), "INVALID_CONFIG") {
		t.Errorf("error = %v", err)
	}
}

func TestConfig_InvalidAutomatchDomainIgnored(t *testing.T) {
	// A non-string domain is dropped with a warning, never an error.
	f := NewFetcher(Config{AutomatchDomain: 123})
	if got := f.Parsing().AutomatchDomain; got != "" {
		t.Errorf("invalid domain must be ignored, got %q", got)
	}

	f = NewFetcher(Config{AutomatchDomain: "example.com"})
	if got := f.Parsing().AutomatchDomain; got != "example.com" {
		t.Errorf("string domain must be kept, got %q", got)
	}
}

func TestConfig_PointerDefaults(t *testing.T) {
	f := NewFetcher(Config{})
	p := f.Parsing()
	if !p.HugeTree || !p.AutoMatch {
		t.Errorf("HugeTree and AutoMatch default on, got %+v", p)
	}

	off := false
	f = NewFetcher(Config{HugeTree: &off, AutoMatch: &off})
	p = f.Parsing()
	if p.HugeTree || p.AutoMatch {
		t.Errorf("explicit false must stick, got %+v", p)
	}
}
