package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/use-agent/fetchkit/models"
	"github.com/use-agent/fetchkit/parser"
)

type trustedEngine struct {
	calls int
}

func (e *trustedEngine) Fetch(ctx context.Context, url string) (*parser.Response, error) {
	e.calls++
	return parser.NewResponse(parser.Raw{URL: url, Status: 200, Text: "<html><body>ok</body></html>"}, parser.DefaultOptions())
}

type noFetch struct{}

type fieldFetch struct {
	Fetch string
}

type nilFuncFetch struct {
	Fetch func(url string) (*parser.Response, error)
}

type zeroArgFetch struct{}

func (zeroArgFetch) Fetch() {}

type urlOnlyFetch struct {
	seen string
}

func (f *urlOnlyFetch) Fetch(url string) (*parser.Response, error) {
	f.seen = url
	return parser.NewResponse(parser.Raw{URL: url, Status: 200, Text: "<html></html>"}, parser.DefaultOptions())
}

func TestCheck_NilCandidate(t *testing.T) {
	_, err := Check(nil)
	assertEngineError(t, err, "missing fetch capability")
}

func TestCheck_MissingFetch(t *testing.T) {
	_, err := Check(noFetch{})
	assertEngineError(t, err, "missing fetch capability")
}

func TestCheck_NonInvocableFetch(t *testing.T) {
	_, err := Check(fieldFetch{Fetch: "not a function"})
	assertEngineError(t, err, "fetch is not invocable")
}

func TestCheck_NilFuncField(t *testing.T) {
	_, err := Check(nilFuncFetch{})
	assertEngineError(t, err, "fetch is not invocable")
}

func TestCheck_ZeroArgFetch(t *testing.T) {
	_, err := Check(zeroArgFetch{})
	assertEngineError(t, err, "fetch takes no arguments")
}

func TestCheck_EngineImplementerPassesUnchanged(t *testing.T) {
	candidate := &trustedEngine{}
	eng, err := Check(candidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eng != Engine(candidate) {
		t.Error("Engine implementers must be returned as-is, not wrapped")
	}
}

func TestCheck_AdaptsURLOnlyCallable(t *testing.T) {
	candidate := &urlOnlyFetch{}
	eng, err := Check(candidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := eng.Fetch(context.Background(), "https://example.com/page")
	if err != nil {
		t.Fatalf("adapted fetch failed: %v", err)
	}
	if candidate.seen != "https://example.com/page" {
		t.Errorf("url was not threaded through, got %q", candidate.seen)
	}
	if resp.Status != 200 {
		t.Errorf("status = %d, want 200", resp.Status)
	}
}

func TestCheck_AdaptsFuncField(t *testing.T) {
	var got string
	candidate := nilFuncFetch{Fetch: func(url string) (*parser.Response, error) {
		got = url
		return parser.NewResponse(parser.Raw{URL: url, Status: 200, Text: "<html></html>"}, parser.DefaultOptions())
	}}
	eng, err := Check(candidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := eng.Fetch(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("adapted fetch failed: %v", err)
	}
	if got != "https://example.com" {
		t.Errorf("url was not threaded through, got %q", got)
	}
}

func TestReflected_BackendErrorPropagatesUnchanged(t *testing.T) {
	sentinel := errors.New("backend blew up")
	candidate := nilFuncFetch{Fetch: func(url string) (*parser.Response, error) {
		return nil, sentinel
	}}
	eng, err := Check(candidate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = eng.Fetch(context.Background(), "https://example.com")
	if !errors.Is(err, sentinel) {
		t.Errorf("backend error was rewritten: %v", err)
	}
}

func assertEngineError(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var engErr *models.EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("expected an EngineError, got %T: %v", err, err)
	}
	if engErr.Message != want {
		t.Errorf("message = %q, want %q", engErr.Message, want)
	}
}
