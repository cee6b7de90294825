package charts

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadThemeYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "theme.yaml")
	raw := []byte("width: 960\nheight: 540\nbackground: \"#FAFAFA\"\ntext: nope\npalette:\n  - \"#112233\"\n  - \"bad\"\n")
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatalf("write theme: %v", err)
	}
	th, err := LoadTheme(p)
	if err != nil {
		t.Fatalf("load theme: %v", err)
	}
	if th.Width != 960 || th.Height != 540 {
		t.Fatalf("want 960x540 got %dx%d", th.Width, th.Height)
	}
	if th.Background != "#fafafa" {
		t.Fatalf("want background=#fafafa got=%s", th.Background)
	}
	if th.Text != DefaultTheme().Text {
		t.Fatalf("invalid colour should fall back, got=%s", th.Text)
	}
	if len(th.Palette) != 1 || th.Palette[0] != "#112233" {
		t.Fatalf("unexpected palette %v", th.Palette)
	}
	if th.FontSize != DefaultTheme().FontSize {
		t.Fatalf("missing font size should default, got=%v", th.FontSize)
	}
}

func TestLoadThemeEmptyPath(t *testing.T) {
	th, err := LoadTheme("")
	if err != nil {
		t.Fatalf("load theme: %v", err)
	}
	if th.Width != DefaultTheme().Width {
		t.Fatalf("want default theme")
	}
}

func TestLoadThemeErrors(t *testing.T) {
	if _, err := LoadTheme(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	p := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(p, []byte("width: [1, 2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTheme(p); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestThemeAffectsRender(t *testing.T) {
	vd := mustValidate(t, Descriptor{ID: "c", Type: "bar", Series: series("Norte", 1)})
	th := DefaultTheme()
	th.Palette = []string{"#abcdef"}
	out, err := NewRenderer(RenderConfig{Theme: th}, nil, nil).Render(context.Background(), vd)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out.Markup, `fill="#abcdef"`) {
		t.Fatalf("palette not applied")
	}
}
