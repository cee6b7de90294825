package charts

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Theme controls chart geometry and colours. It is plain data, passed to
// each renderer explicitly.
type Theme struct {
	Width      int      `yaml:"width" json:"width"`
	Height     int      `yaml:"height" json:"height"`
	Background string   `yaml:"background" json:"background"`
	Grid       string   `yaml:"grid" json:"grid"`
	Axis       string   `yaml:"axis" json:"axis"`
	Text       string   `yaml:"text" json:"text"`
	FontSize   float64  `yaml:"font_size" json:"font_size"`
	Palette    []string `yaml:"palette" json:"palette"`
}

func DefaultTheme() Theme {
	return Theme{
		Width:      720,
		Height:     400,
		Background: "#ffffff",
		Grid:       "#e6e6e6",
		Axis:       "#555555",
		Text:       "#222222",
		FontSize:   12,
		Palette: []string{
			"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
			"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
		},
	}
}

var hexColorRE = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// WithDefaults fills zero or invalid fields from DefaultTheme.
func (t Theme) WithDefaults() Theme {
	def := DefaultTheme()
	if t.Width < 200 || t.Width > 4000 {
		t.Width = def.Width
	}
	if t.Height < 150 || t.Height > 4000 {
		t.Height = def.Height
	}
	if t.FontSize < 6 || t.FontSize > 48 {
		t.FontSize = def.FontSize
	}
	t.Background = colorOr(t.Background, def.Background)
	t.Grid = colorOr(t.Grid, def.Grid)
	t.Axis = colorOr(t.Axis, def.Axis)
	t.Text = colorOr(t.Text, def.Text)
	palette := make([]string, 0, len(t.Palette))
	for _, c := range t.Palette {
		c = strings.TrimSpace(c)
		if hexColorRE.MatchString(c) {
			palette = append(palette, strings.ToLower(c))
		}
	}
	if len(palette) == 0 {
		palette = def.Palette
	}
	t.Palette = palette
	return t
}

func (t Theme) color(i int) string {
	if len(t.Palette) == 0 {
		return DefaultTheme().Palette[i%10]
	}
	return t.Palette[i%len(t.Palette)]
}

func colorOr(c, def string) string {
	c = strings.TrimSpace(c)
	if hexColorRE.MatchString(c) {
		return strings.ToLower(c)
	}
	return def
}

// LoadTheme reads a YAML theme file; missing fields keep their defaults.
func LoadTheme(path string) (Theme, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultTheme(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("read chart theme: %w", err)
	}
	var t Theme
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Theme{}, fmt.Errorf("parse chart theme %s: %w", path, err)
	}
	return t.WithDefaults(), nil
}
