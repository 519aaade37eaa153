package parser

import (
	"testing"
)

func TestNewResponse_ReasonDerivedFromStatus(t *testing.T) {
	resp, err := NewResponse(Raw{
		URL:    "https://example.com/missing",
		Status: 404,
		Text:   "<html>gone</html>",
	}, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reason != "Not Found" {
		t.Errorf("reason = %q, want %q", resp.Reason, "Not Found")
	}
}

func TestNewResponse_ExplicitReasonKept(t *testing.T) {
	resp, err := NewResponse(Raw{
		URL:    "https://example.com",
		Status: 404,
		Reason: "Nope",
		Text:   "<html></html>",
	}, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reason != "Nope" {
		t.Errorf("backend-supplied reason must win, got %q", resp.Reason)
	}
}

func TestNewResponse_UnknownStatus(t *testing.T) {
	resp, err := NewResponse(Raw{URL: "https://example.com", Status: 999, Text: "<html></html>"}, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Reason != "Unknown Status Code" {
		t.Errorf("reason = %q", resp.Reason)
	}
}

func TestNewResponse_NegativeStatusRejected(t *testing.T) {
	if _, err := NewResponse(Raw{URL: "https://example.com", Status: -1}, DefaultOptions()); err == nil {
		t.Error("negative status must be rejected")
	}
}

func TestNewResponse_AutomatchDomainOverridesURL(t *testing.T) {
	opts := DefaultOptions()
	opts.AutomatchDomain = "example.com"
	resp, err := NewResponse(Raw{
		URL:    "http://books.example.org/catalogue/page-1.html",
		Status: 200,
		Text:   "<html></html>",
	}, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.URL != "example.com" {
		t.Errorf("URL = %q, want the override verbatim", resp.URL)
	}
	if resp.Document.URL() != "example.com" {
		t.Errorf("document identity must use the override too, got %q", resp.Document.URL())
	}
}

func TestNewResponse_TextAndBodyMirror(t *testing.T) {
	fromText, err := NewResponse(Raw{URL: "https://example.com", Status: 200, Text: "<html>x</html>"}, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(fromText.Body) != fromText.Text {
		t.Errorf("body not mirrored from text: %q vs %q", fromText.Body, fromText.Text)
	}

	fromBody, err := NewResponse(Raw{URL: "https://example.com", Status: 200, Body: []byte("<html>y</html>")}, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fromBody.Text != string(fromBody.Body) {
		t.Errorf("text not mirrored from body: %q vs %q", fromBody.Text, fromBody.Body)
	}
}

func TestNewResponse_Defaults(t *testing.T) {
	resp, err := NewResponse(Raw{URL: "https://example.com", Status: 200, Text: "<html></html>"}, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Encoding != "utf-8" {
		t.Errorf("encoding default = %q", resp.Encoding)
	}
	if resp.Cookies == nil || resp.Headers == nil || resp.RequestHeaders == nil {
		t.Error("map fields must be non-nil even when the backend omits them")
	}
}
