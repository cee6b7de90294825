package charts

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// renderSVG serializes a scene into a standalone <svg> element. The output
// carries no scripts and no external references so it can be inlined.
func renderSVG(sc scene, id string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" role="img" aria-label="%s" data-chart-id="%s">`,
		sc.width, sc.height, sc.width, sc.height, EscapeMarkup(sc.title), EscapeMarkup(id))
	fmt.Fprintf(&sb, `<title>%s</title>`, EscapeMarkup(sc.title))
	if sc.desc != "" {
		fmt.Fprintf(&sb, `<desc>%s</desc>`, EscapeMarkup(sc.desc))
	}
	fmt.Fprintf(&sb, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, sc.width, sc.height, sc.background)
	for _, s := range sc.shapes {
		writeShape(&sb, s)
	}
	sb.WriteString(`</svg>`)
	return sb.String()
}

func writeShape(sb *strings.Builder, s shape) {
	switch s.kind {
	case shapeRect:
		fmt.Fprintf(sb, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s"`, num(s.x), num(s.y), num(s.w), num(s.h), s.fill)
		closeWithTitle(sb, "rect", s.title)
	case shapeLine:
		fmt.Fprintf(sb, `<line x1="%s" y1="%s" x2="%s" y2="%s" stroke="%s" stroke-width="%s"`, num(s.x), num(s.y), num(s.x2), num(s.y2), s.stroke, num(s.strokeWidth))
		if s.dashed {
			sb.WriteString(` stroke-dasharray="4,3"`)
		}
		sb.WriteString(`/>`)
	case shapePolyline:
		parts := make([]string, len(s.pts))
		for i, p := range s.pts {
			parts[i] = num(p.X) + "," + num(p.Y)
		}
		fmt.Fprintf(sb, `<polyline points="%s" fill="none" stroke="%s" stroke-width="%s" stroke-linejoin="round"/>`, strings.Join(parts, " "), s.stroke, num(s.strokeWidth))
	case shapeCircle:
		fmt.Fprintf(sb, `<circle cx="%s" cy="%s" r="%s" fill="%s"`, num(s.x), num(s.y), num(s.r), s.fill)
		closeWithTitle(sb, "circle", s.title)
	case shapeWedge:
		writeWedge(sb, s)
	case shapeText:
		fmt.Fprintf(sb, `<text x="%s" y="%s" font-size="%s" fill="%s" text-anchor="%s"`, num(s.x), num(s.y), num(s.size), s.fill, svgAnchor(s.anchor))
		if s.bold {
			sb.WriteString(` font-weight="bold"`)
		}
		fmt.Fprintf(sb, `>%s</text>`, EscapeMarkup(s.text))
	}
}

func writeWedge(sb *strings.Builder, s shape) {
	if s.a1-s.a0 >= 2*math.Pi-1e-9 {
		// a single full slice; an arc from a point to itself renders nothing
		fmt.Fprintf(sb, `<circle cx="%s" cy="%s" r="%s" fill="%s"`, num(s.x), num(s.y), num(s.r), s.fill)
		closeWithTitle(sb, "circle", s.title)
		return
	}
	x0, y0 := s.x+s.r*math.Cos(s.a0), s.y+s.r*math.Sin(s.a0)
	x1, y1 := s.x+s.r*math.Cos(s.a1), s.y+s.r*math.Sin(s.a1)
	large := 0
	if s.a1-s.a0 > math.Pi {
		large = 1
	}
	fmt.Fprintf(sb, `<path d="M%s,%s L%s,%s A%s,%s 0 %d 1 %s,%s Z" fill="%s" stroke="#ffffff" stroke-width="1"`,
		num(s.x), num(s.y), num(x0), num(y0), num(s.r), num(s.r), large, num(x1), num(y1), s.fill)
	closeWithTitle(sb, "path", s.title)
}

func closeWithTitle(sb *strings.Builder, tag, title string) {
	if title == "" {
		sb.WriteString(`/>`)
		return
	}
	fmt.Fprintf(sb, `><title>%s</title></%s>`, EscapeMarkup(title), tag)
}

func svgAnchor(a anchor) string {
	switch a {
	case anchorMiddle:
		return "middle"
	case anchorEnd:
		return "end"
	default:
		return "start"
	}
}

// num keeps coordinates short and stable across platforms.
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// EscapeMarkup escapes s for use in XML or HTML text and attribute values.
func EscapeMarkup(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&#39;")
	// brackets are escaped so inlined markup can never be read as a tag
	s = strings.ReplaceAll(s, "[", "&#91;")
	s = strings.ReplaceAll(s, "]", "&#93;")
	return s
}
