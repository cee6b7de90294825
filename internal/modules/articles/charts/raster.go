package charts

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	fontOnce    sync.Once
	regularFont *truetype.Font
	boldFont    *truetype.Font
	fontErr     error
)

func loadFonts() (*truetype.Font, *truetype.Font, error) {
	fontOnce.Do(func() {
		regularFont, fontErr = truetype.Parse(goregular.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("failed to parse regular TTF: %w", fontErr)
			return
		}
		boldFont, fontErr = truetype.Parse(gobold.TTF)
		if fontErr != nil {
			fontErr = fmt.Errorf("failed to parse bold TTF: %w", fontErr)
		}
	})
	return regularFont, boldFont, fontErr
}

// faceCache hands out font faces for a single render. truetype faces keep
// a glyph cache and must not be shared between goroutines.
type faceCache struct {
	regular, bold *truetype.Font
	faces         map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

func (fc *faceCache) face(size float64, bold bool) font.Face {
	k := faceKey{size: size, bold: bold}
	if f, ok := fc.faces[k]; ok {
		return f
	}
	src := fc.regular
	if bold {
		src = fc.bold
	}
	f := truetype.NewFace(src, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	fc.faces[k] = f
	return f
}

// renderPNG draws the scene with gg. Text baselines and anchors follow the
// SVG backend so both formats lay out the same.
func renderPNG(sc scene) ([]byte, error) {
	regular, bold, err := loadFonts()
	if err != nil {
		return nil, err
	}
	fc := &faceCache{regular: regular, bold: bold, faces: map[faceKey]font.Face{}}

	dc := gg.NewContext(sc.width, sc.height)
	dc.SetHexColor(sc.background)
	dc.DrawRectangle(0, 0, float64(sc.width), float64(sc.height))
	dc.Fill()

	for _, s := range sc.shapes {
		drawShape(dc, fc, s)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func drawShape(dc *gg.Context, fc *faceCache, s shape) {
	switch s.kind {
	case shapeRect:
		dc.SetHexColor(s.fill)
		dc.DrawRectangle(s.x, s.y, s.w, s.h)
		dc.Fill()
	case shapeLine:
		dc.SetHexColor(s.stroke)
		dc.SetLineWidth(s.strokeWidth)
		if s.dashed {
			dc.SetDash(4, 3)
		}
		dc.DrawLine(s.x, s.y, s.x2, s.y2)
		dc.Stroke()
		dc.SetDash()
	case shapePolyline:
		if len(s.pts) == 0 {
			return
		}
		dc.SetHexColor(s.stroke)
		dc.SetLineWidth(s.strokeWidth)
		dc.SetLineJoinRound()
		dc.MoveTo(s.pts[0].X, s.pts[0].Y)
		for _, p := range s.pts[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.Stroke()
	case shapeCircle:
		dc.SetHexColor(s.fill)
		dc.DrawCircle(s.x, s.y, s.r)
		dc.Fill()
	case shapeWedge:
		dc.SetHexColor(s.fill)
		dc.MoveTo(s.x, s.y)
		dc.DrawArc(s.x, s.y, s.r, s.a0, s.a1)
		dc.ClosePath()
		dc.FillPreserve()
		dc.SetHexColor("#ffffff")
		dc.SetLineWidth(1)
		dc.Stroke()
	case shapeText:
		dc.SetFontFace(fc.face(s.size, s.bold))
		dc.SetHexColor(s.fill)
		ax := 0.0
		switch s.anchor {
		case anchorMiddle:
			ax = 0.5
		case anchorEnd:
			ax = 1
		}
		dc.DrawStringAnchored(s.text, s.x, s.y, ax, 0)
	}
}
