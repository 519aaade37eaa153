package engine

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestNSTConnectURL_Defaults(t *testing.T) {
	got, err := nstConnectURL("ws://nst.local:8848/devtool/launch", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("result is not a URL: %v", err)
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(u.Query().Get("config")), &cfg); err != nil {
		t.Fatalf("config query param is not JSON: %v", err)
	}
	for _, key := range []string{"once", "headless", "autoClose"} {
		if cfg[key] != true {
			t.Errorf("default %s = %v, want true", key, cfg[key])
		}
	}
}

func TestNSTConnectURL_CallerConfigWins(t *testing.T) {
	got, err := nstConnectURL("ws://nst.local:8848/devtool/launch", map[string]any{
		"headless": false,
		"timezone": "UTC",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	u, _ := url.Parse(got)
	var cfg map[string]any
	if err := json.Unmarshal([]byte(u.Query().Get("config")), &cfg); err != nil {
		t.Fatalf("config query param is not JSON: %v", err)
	}
	if cfg["headless"] != false {
		t.Errorf("caller override lost: headless = %v", cfg["headless"])
	}
	if cfg["timezone"] != "UTC" {
		t.Errorf("caller addition lost: timezone = %v", cfg["timezone"])
	}
	if cfg["once"] != true {
		t.Errorf("untouched default lost: once = %v", cfg["once"])
	}
}

func TestBlockedTypes(t *testing.T) {
	if got := blockedTypes(false, false); len(got) != 0 {
		t.Errorf("nothing requested, nothing blocked; got %v", got)
	}

	imagesOnly := blockedTypes(true, false)
	if len(imagesOnly) != 1 {
		t.Errorf("block-images alone must block exactly images, got %v", imagesOnly)
	}
	if _, ok := imagesOnly[proto.NetworkResourceTypeImage]; !ok {
		t.Error("images not in the block set")
	}

	full := blockedTypes(false, true)
	if len(full) != len(disableResourceTypes) {
		t.Errorf("disable-resources must block the whole set, got %d types", len(full))
	}
	if _, ok := full[proto.NetworkResourceTypeDocument]; ok {
		t.Error("documents must never be blocked")
	}
}
