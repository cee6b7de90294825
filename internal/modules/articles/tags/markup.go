package tags

import (
	"net/url"
	"path"
	"strings"

	"github.com/yungbote/articleforge-backend/internal/modules/articles/charts"
	"github.com/yungbote/articleforge-backend/internal/modules/articles/figures"
)

const defaultURLPrefix = "/uploads"

// EmbedConfig controls how resolved images are referenced in the output.
// URL, when set, wins over URLPrefix.
type EmbedConfig struct {
	URLPrefix string
	URL       func(rawName string) string
}

// URLFor returns the src for an available file.
func (c EmbedConfig) URLFor(rawName string) string {
	if c.URL != nil {
		return c.URL(rawName)
	}
	prefix := strings.TrimRight(strings.TrimSpace(c.URLPrefix), "/")
	if prefix == "" {
		prefix = defaultURLPrefix
	}
	parts := strings.Split(strings.Trim(strings.ReplaceAll(rawName, `\`, "/"), "/"), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return prefix + "/" + strings.Join(parts, "/")
}

func imageFigure(src, caption string) string {
	c := charts.EscapeMarkup(caption)
	return `<figure class="article-figure"><img src="` + charts.EscapeMarkup(src) + `" alt="` + c + `"/><figcaption>` + c + `</figcaption></figure>`
}

func chartFigure(id, svg, caption string) string {
	return `<figure class="article-chart" data-chart-id="` + charts.EscapeMarkup(id) + `">` + svg +
		`<figcaption>` + charts.EscapeMarkup(caption) + `</figcaption></figure>`
}

// captionFor turns a requested file name into display text. Image
// extensions are dropped and '_' or '-' become spaces.
func captionFor(requested string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(requested), `\`, "/"))
	if ext := path.Ext(base); figures.IsImageName(base) && len(ext) < len(base) {
		base = strings.TrimSuffix(base, ext)
	}
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	return strings.Join(strings.Fields(base), " ")
}
