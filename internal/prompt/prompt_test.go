package prompt

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func radioConfig() Config {
	return Config{
		Title: "Pick one",
		Style: StyleRadio,
		Options: []Option{
			{Message: "Yes", Value: "yes", Example: "y"},
			{Message: "No", Value: "no"},
		},
	}
}

func tilesConfig() Config {
	return Config{
		Title: "Pick a style",
		Style: StyleTiles,
		Options: []Option{
			{Message: "Pretty", Value: "pretty", Details: "indented JSON"},
			{Message: "Compact", Value: "compact"},
		},
	}
}

func mustPrompt(t *testing.T, m *Manager, cfg Config) *Prompt {
	t.Helper()
	p, err := New(m, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func awaitNow(t *testing.T, pd *Pending) *string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	v, err := pd.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	return v
}

func TestNewValidatesConfig(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"bad style", Config{Style: "dropdown", Options: []Option{{Value: "x"}}}},
		{"empty style", Config{Options: []Option{{Value: "x"}}}},
		{"no options", Config{Style: StyleRadio}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(m, tt.cfg); err == nil {
				t.Error("expected configuration error")
			}
		})
	}

	if _, err := New(m, radioConfig()); err != nil {
		t.Errorf("valid radio config rejected: %v", err)
	}
	if _, err := New(m, tilesConfig()); err != nil {
		t.Errorf("valid tiles config rejected: %v", err)
	}
}

func TestShowSubmitResolvesValue(t *testing.T) {
	m := NewManager()
	p := mustPrompt(t, m, radioConfig())

	pd, err := p.Show()
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if m.Active() != p {
		t.Fatal("prompt should be visible")
	}

	if err := m.Submit(p.ID(), "yes"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	v := awaitNow(t, pd)
	if v == nil || *v != "yes" {
		t.Errorf("expected 'yes', got %v", v)
	}
	if m.Active() != nil {
		t.Error("queue should be empty after resolution")
	}
}

func TestDismissResolvesNil(t *testing.T) {
	m := NewManager()
	p := mustPrompt(t, m, tilesConfig())

	pd, err := p.Show()
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if err := m.Dismiss(p.ID()); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if v := awaitNow(t, pd); v != nil {
		t.Errorf("expected nil on dismissal, got %q", *v)
	}
}

func TestSecondShowOnSameInstanceFails(t *testing.T) {
	m := NewManager()
	p := mustPrompt(t, m, radioConfig())

	if _, err := p.Show(); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if _, err := p.Show(); !errors.Is(err, ErrAlreadyShowing) {
		t.Fatalf("expected ErrAlreadyShowing, got %v", err)
	}

	// After resolution the instance can be shown again.
	if err := m.Dismiss(p.ID()); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if _, err := p.Show(); err != nil {
		t.Fatalf("Show after resolve: %v", err)
	}
}

func TestFIFOVisibility(t *testing.T) {
	m := NewManager()
	p1 := mustPrompt(t, m, radioConfig())
	p2 := mustPrompt(t, m, tilesConfig())

	pd1, err := p1.Show()
	if err != nil {
		t.Fatalf("Show p1: %v", err)
	}
	pd2, err := p2.Show()
	if err != nil {
		t.Fatalf("Show p2: %v", err)
	}

	if m.Active() != p1 {
		t.Fatal("first prompt should be visible first")
	}
	// The second prompt cannot be acted on while the first is visible.
	if err := m.Submit(p2.ID(), "pretty"); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive for queued prompt, got %v", err)
	}

	if err := m.Dismiss(p1.ID()); err != nil {
		t.Fatalf("Dismiss p1: %v", err)
	}
	if awaitNow(t, pd1) != nil {
		t.Error("p1 should resolve nil")
	}

	if m.Active() != p2 {
		t.Fatal("second prompt should become visible after the first resolves")
	}
	if err := m.Submit(p2.ID(), "compact"); err != nil {
		t.Fatalf("Submit p2: %v", err)
	}
	if v := awaitNow(t, pd2); v == nil || *v != "compact" {
		t.Errorf("expected 'compact', got %v", v)
	}
}

func TestSubmitRejectsUnknownValue(t *testing.T) {
	m := NewManager()
	p := mustPrompt(t, m, radioConfig())
	pd, _ := p.Show()

	if err := m.Submit(p.ID(), "maybe"); err == nil {
		t.Fatal("expected error for value outside the options")
	}
	// Still pending after the rejected submit.
	if err := m.Submit(p.ID(), "no"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if v := awaitNow(t, pd); v == nil || *v != "no" {
		t.Errorf("expected 'no', got %v", v)
	}
}

func TestTransformAppliedOnResolution(t *testing.T) {
	m := NewManager()
	cfg := radioConfig()
	cfg.Transform = func(v *string) *string {
		if v == nil {
			fallback := "dismissed"
			return &fallback
		}
		upper := strings.ToUpper(*v)
		return &upper
	}
	p := mustPrompt(t, m, cfg)

	pd, _ := p.Show()
	if err := m.Submit(p.ID(), "yes"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if v := awaitNow(t, pd); v == nil || *v != "YES" {
		t.Errorf("expected transformed 'YES', got %v", v)
	}

	pd, _ = p.Show()
	if err := m.Dismiss(p.ID()); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if v := awaitNow(t, pd); v == nil || *v != "dismissed" {
		t.Errorf("expected transformed dismissal, got %v", v)
	}
}

func TestComponentCachedAfterFirstRender(t *testing.T) {
	m := NewManager()
	p := mustPrompt(t, m, radioConfig())

	if _, ok := p.view.(uncompiled); !ok {
		t.Fatal("prompt should start uncompiled")
	}
	first := p.Component()
	if _, ok := p.view.(compiled); !ok {
		t.Fatal("prompt should be compiled after first render")
	}
	second := p.Component()

	var b1, b2 strings.Builder
	if err := first.Render(context.Background(), &b1); err != nil {
		t.Fatalf("render: %v", err)
	}
	if err := second.Render(context.Background(), &b2); err != nil {
		t.Fatalf("render: %v", err)
	}
	if b1.String() != b2.String() {
		t.Error("cached component should render identically")
	}
	if !strings.Contains(b1.String(), `type="radio"`) {
		t.Error("radio markup missing")
	}
	if !strings.Contains(b1.String(), "Pick one") {
		t.Error("title missing")
	}
}

func TestTilesMarkup(t *testing.T) {
	m := NewManager()
	p := mustPrompt(t, m, tilesConfig())

	var b strings.Builder
	if err := p.Component().Render(context.Background(), &b); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := b.String()
	if !strings.Contains(html, "prompt-tile") {
		t.Error("tiles markup missing")
	}
	if !strings.Contains(html, "indented JSON") {
		t.Error("tile details missing")
	}
	if strings.Contains(html, `type="radio"`) {
		t.Error("tiles should not render radio inputs")
	}
}
