package fetchers

import (
	"testing"

	"github.com/go-rod/rod"

	"github.com/use-agent/fetchkit/engine"
)

func TestNormalizeHumanize(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want engine.Humanize
	}{
		{"nil means enabled with default duration", nil, engine.Humanize{Enabled: true}},
		{"true enables", true, engine.Humanize{Enabled: true}},
		{"false disables", false, engine.Humanize{Enabled: false}},
		{"int sets the duration budget", 3, engine.Humanize{Enabled: true, MaxSeconds: 3}},
		{"float sets the duration budget", 2.5, engine.Humanize{Enabled: true, MaxSeconds: 2.5}},
		{"invalid kind falls back to enabled", "yes please", engine.Humanize{Enabled: true}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := normalizeHumanize(c.in); got != c.want {
				t.Errorf("normalizeHumanize(%v) = %+v, want %+v", c.in, got, c.want)
			}
		})
	}
}

func TestPageActionOr(t *testing.T) {
	if pageActionOr(nil) == nil {
		t.Error("nil action must default to the identity hook")
	}

	called := false
	custom := engine.PageAction(func(p *rod.Page) *rod.Page {
		called = true
		return p
	})
	pageActionOr(custom)(nil)
	if !called {
		t.Error("a supplied action must be returned as-is")
	}
}
