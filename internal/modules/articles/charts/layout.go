package charts

import (
	"math"
	"strconv"
	"strings"
)

type shapeKind int

const (
	shapeRect shapeKind = iota
	shapeLine
	shapePolyline
	shapeCircle
	shapeWedge
	shapeText
)

type anchor int

const (
	anchorStart anchor = iota
	anchorMiddle
	anchorEnd
)

type xy struct{ X, Y float64 }

// shape is a backend-neutral drawing primitive. The SVG and PNG backends
// both consume the same scene, so the two formats never drift apart.
type shape struct {
	kind shapeKind

	x, y, w, h   float64
	x2, y2       float64
	r, a0, a1    float64
	pts          []xy
	fill, stroke string
	strokeWidth  float64
	dashed       bool
	text         string
	size         float64
	anchor       anchor
	bold         bool
	title        string
}

type scene struct {
	width, height int
	background    string
	title         string
	desc          string
	shapes        []shape
}

type plotArea struct {
	left, top, width, height float64
}

func (p plotArea) right() float64  { return p.left + p.width }
func (p plotArea) bottom() float64 { return p.top + p.height }

// axisRange is a closed value interval mapped onto a pixel span.
type axisRange struct {
	min, max float64
}

const minSpan = 1e-9

// newAxisRange pads the data extent and guards against a zero span, which
// would otherwise divide by zero when scaling.
func newAxisRange(values []float64, includeZero bool) axisRange {
	if len(values) == 0 {
		return axisRange{min: 0, max: 1}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if includeZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if hi-lo < minSpan {
		pad := math.Max(math.Abs(hi)*0.1, 1)
		if includeZero {
			// lo and hi are both zero here
			return axisRange{min: 0, max: pad}
		}
		lo -= pad
		hi += pad
	}
	return axisRange{min: lo, max: hi}
}

// halfSpan is computed on halved bounds so that ranges wider than
// MaxFloat64 stay finite.
func (a axisRange) halfSpan() float64 {
	if h := a.max/2 - a.min/2; h > minSpan/2 {
		return h
	}
	return 0.5
}

// frac maps v to its position in the range, 0 at min and 1 at max.
func (a axisRange) frac(v float64) float64 {
	return (v/2 - a.min/2) / a.halfSpan()
}

func (a axisRange) ticks(n int) []float64 {
	out := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		out = append(out, a.min*(1-t)+a.max*t)
	}
	return out
}

func buildScene(vd ValidatedDescriptor, theme Theme) scene {
	theme = theme.WithDefaults()
	sc := scene{
		width:      theme.Width,
		height:     theme.Height,
		background: theme.Background,
		title:      vd.Title(),
		desc:       vd.Description,
	}
	sc.shapes = append(sc.shapes, shape{
		kind: shapeText, x: float64(theme.Width) / 2, y: 24,
		text: truncateLabel(vd.Title(), 80), size: theme.FontSize + 4, fill: theme.Text,
		anchor: anchorMiddle, bold: true,
	})
	area := plotArea{left: 64, top: 44, width: float64(theme.Width) - 64 - 24, height: float64(theme.Height) - 44 - 56}
	switch vd.Type {
	case ChartBar:
		sc.shapes = append(sc.shapes, barShapes(vd, theme, area)...)
	case ChartLine:
		sc.shapes = append(sc.shapes, lineShapes(vd, theme, area)...)
	case ChartPie:
		sc.shapes = append(sc.shapes, pieShapes(vd, theme)...)
	case ChartScatter:
		sc.shapes = append(sc.shapes, scatterShapes(vd, theme, area)...)
	}
	return sc
}

func yValues(vd ValidatedDescriptor) []float64 {
	out := make([]float64, len(vd.Points))
	for i, p := range vd.Points {
		out[i] = p.Y
	}
	return out
}

func valueAxis(theme Theme, area plotArea, yr axisRange) []shape {
	var out []shape
	for _, tick := range yr.ticks(5) {
		y := scaleY(area, yr, tick)
		out = append(out,
			shape{kind: shapeLine, x: area.left, y: y, x2: area.right(), y2: y, stroke: theme.Grid, strokeWidth: 1, dashed: true},
			shape{kind: shapeText, x: area.left - 6, y: y + theme.FontSize/3, text: formatTick(tick), size: theme.FontSize - 1, fill: theme.Text, anchor: anchorEnd},
		)
	}
	out = append(out,
		shape{kind: shapeLine, x: area.left, y: area.top, x2: area.left, y2: area.bottom(), stroke: theme.Axis, strokeWidth: 1},
		shape{kind: shapeLine, x: area.left, y: area.bottom(), x2: area.right(), y2: area.bottom(), stroke: theme.Axis, strokeWidth: 1},
	)
	return out
}

func categoryLabels(vd ValidatedDescriptor, theme Theme, area plotArea) []shape {
	n := len(vd.Points)
	slot := area.width / float64(n)
	maxRunes := int(slot / (theme.FontSize * 0.6))
	if maxRunes < 3 {
		maxRunes = 3
	}
	out := make([]shape, 0, n)
	for i, p := range vd.Points {
		out = append(out, shape{
			kind: shapeText, x: area.left + slot*(float64(i)+0.5), y: area.bottom() + theme.FontSize + 6,
			text: truncateLabel(p.Label, maxRunes), size: theme.FontSize - 1, fill: theme.Text, anchor: anchorMiddle,
		})
	}
	return out
}

func barShapes(vd ValidatedDescriptor, theme Theme, area plotArea) []shape {
	yr := newAxisRange(yValues(vd), true)
	out := valueAxis(theme, area, yr)
	n := len(vd.Points)
	slot := area.width / float64(n)
	bw := slot * 0.7
	zeroY := scaleY(area, yr, math.Max(yr.min, math.Min(0, yr.max)))
	for i, p := range vd.Points {
		y := scaleY(area, yr, p.Y)
		top, h := y, zeroY-y
		if h < 0 {
			top, h = zeroY, -h
		}
		if h < 1 {
			h = 1
		}
		out = append(out, shape{
			kind: shapeRect, x: area.left + slot*float64(i) + (slot-bw)/2, y: top, w: bw, h: h,
			fill: theme.color(i), title: p.Label + ": " + formatValue(p.Y),
		})
	}
	return append(out, categoryLabels(vd, theme, area)...)
}

func lineShapes(vd ValidatedDescriptor, theme Theme, area plotArea) []shape {
	yr := newAxisRange(yValues(vd), false)
	out := valueAxis(theme, area, yr)
	n := len(vd.Points)
	slot := area.width / float64(n)
	pts := make([]xy, n)
	for i, p := range vd.Points {
		pts[i] = xy{X: area.left + slot*(float64(i)+0.5), Y: scaleY(area, yr, p.Y)}
	}
	out = append(out, shape{kind: shapePolyline, pts: pts, stroke: theme.color(0), strokeWidth: 2})
	for i, p := range vd.Points {
		out = append(out, shape{kind: shapeCircle, x: pts[i].X, y: pts[i].Y, r: 3.5, fill: theme.color(0), title: p.Label + ": " + formatValue(p.Y)})
	}
	return append(out, categoryLabels(vd, theme, area)...)
}

func scatterShapes(vd ValidatedDescriptor, theme Theme, area plotArea) []shape {
	xs := make([]float64, len(vd.Points))
	for i, p := range vd.Points {
		xs[i] = p.X
	}
	xr := newAxisRange(xs, false)
	yr := newAxisRange(yValues(vd), false)
	out := valueAxis(theme, area, yr)
	for _, tick := range xr.ticks(5) {
		x := scaleX(area, xr, tick)
		out = append(out, shape{
			kind: shapeText, x: x, y: area.bottom() + theme.FontSize + 6,
			text: formatTick(tick), size: theme.FontSize - 1, fill: theme.Text, anchor: anchorMiddle,
		})
	}
	for _, p := range vd.Points {
		title := formatValue(p.X) + ", " + formatValue(p.Y)
		if p.Label != "" {
			title = p.Label + ": " + title
		}
		out = append(out, shape{kind: shapeCircle, x: scaleX(area, xr, p.X), y: scaleY(area, yr, p.Y), r: 4, fill: theme.color(0), title: title})
	}
	return out
}

func pieShapes(vd ValidatedDescriptor, theme Theme) []shape {
	total := 0.0
	for _, p := range vd.Points {
		total += p.Y
	}
	if math.IsInf(total, 0) || math.IsNaN(total) || total <= 0 {
		total = 1
	}
	legendW := float64(theme.Width) * 0.35
	cx := (float64(theme.Width) - legendW) / 2
	cy := 44 + (float64(theme.Height)-44-16)/2
	r := math.Min(cx-24, (float64(theme.Height)-44-16)/2-8)
	if r < 10 {
		r = 10
	}
	var out []shape
	angle := -math.Pi / 2
	for i, p := range vd.Points {
		share := p.Y / total
		next := angle + share*2*math.Pi
		if share > 0 {
			out = append(out, shape{
				kind: shapeWedge, x: cx, y: cy, r: r, a0: angle, a1: next,
				fill: theme.color(i), title: p.Label + ": " + formatValue(p.Y),
			})
		}
		angle = next
	}
	lx := float64(theme.Width) - legendW + 8
	for i, p := range vd.Points {
		ly := 60 + float64(i)*(theme.FontSize+8)
		if ly > float64(theme.Height)-12 {
			break
		}
		pct := strconv.FormatFloat(p.Y/total*100, 'f', 1, 64) + "%"
		out = append(out,
			shape{kind: shapeRect, x: lx, y: ly - theme.FontSize + 2, w: theme.FontSize, h: theme.FontSize, fill: theme.color(i)},
			shape{kind: shapeText, x: lx + theme.FontSize + 6, y: ly, text: truncateLabel(p.Label, 22) + " (" + pct + ")", size: theme.FontSize - 1, fill: theme.Text, anchor: anchorStart},
		)
	}
	return out
}

func scaleY(area plotArea, yr axisRange, v float64) float64 {
	return area.bottom() - yr.frac(v)*area.height
}

func scaleX(area plotArea, xr axisRange, v float64) float64 {
	return area.left + xr.frac(v)*area.width
}

func formatTick(v float64) string {
	if math.Abs(v) >= 1000 || v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 2, 64), "0"), ".")
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func truncateLabel(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
