package lens

import (
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
)

// rgba builds a color from 8-bit channels and a 0-1 alpha.
func rgba(r, g, b uint8, a float64) gg.RGBA {
	return gg.RGBA{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255, A: a}
}

// fade scales a color's alpha.
func fade(c gg.RGBA, alpha float64) gg.RGBA {
	c.A *= clamp01(alpha)
	return c
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func fill(dc *gg.Context, c gg.RGBA) {
	dc.SetFillBrush(gg.Solid(c))
	dc.Fill()
}

func stroke(dc *gg.Context, c gg.RGBA, width float64) {
	dc.SetStrokeBrush(gg.Solid(c))
	dc.SetLineWidth(width)
	dc.Stroke()
}

// arcTo appends a circular arc around (cx, cy) from angle a0 to a1. The arc
// is flattened into line segments so it follows the current transform,
// rotation included. With move set the arc starts a new subpath.
func arcTo(dc *gg.Context, cx, cy, r, a0, a1 float64, move bool) {
	n := int(math.Ceil(math.Abs(a1-a0)/(math.Pi/24))) + 1
	if n < 2 {
		n = 2
	}
	for i := 0; i <= n; i++ {
		a := a0 + (a1-a0)*float64(i)/float64(n)
		x, y := cx+math.Cos(a)*r, cy+math.Sin(a)*r
		if i == 0 && move {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
}

// roundRect appends a rounded rectangle that follows the current transform.
func roundRect(dc *gg.Context, x, y, w, h, r float64) {
	r = math.Min(r, math.Min(w, h)/2)
	dc.MoveTo(x+r, y)
	dc.LineTo(x+w-r, y)
	dc.QuadraticTo(x+w, y, x+w, y+r)
	dc.LineTo(x+w, y+h-r)
	dc.QuadraticTo(x+w, y+h, x+w-r, y+h)
	dc.LineTo(x+r, y+h)
	dc.QuadraticTo(x, y+h, x, y+h-r)
	dc.LineTo(x, y+r)
	dc.QuadraticTo(x, y, x+r, y)
	dc.ClosePath()
}

// rotatedEllipse appends an ellipse centred on (x, y) and rotated by angle.
func rotatedEllipse(dc *gg.Context, x, y, rx, ry, angle float64) {
	dc.Push()
	dc.Translate(x, y)
	dc.Rotate(angle)
	dc.DrawEllipse(0, 0, rx, ry)
	dc.Pop()
}

// starPath appends a star with the given number of points, its first point
// straight up.
func starPath(dc *gg.Context, x, y float64, points int, outer, inner float64) {
	for i := 0; i < points*2; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		a := -math.Pi/2 + float64(i)*math.Pi/float64(points)
		px, py := x+math.Cos(a)*r, y+math.Sin(a)*r
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
	dc.ClosePath()
}

// radialGlow fills a circle with a radial gradient from inner at the centre
// to outer at radius r. Gradients sample in device space, so the centre is
// mapped through the current transform first.
func radialGlow(dc *gg.Context, x, y, r float64, inner, outer gg.RGBA) {
	if r <= 0 {
		return
	}
	dx, dy := dc.TransformPoint(x, y)
	brush := gg.NewRadialGradientBrush(dx, dy, 0, r).
		AddColorStop(0, inner).
		AddColorStop(1, outer)
	dc.DrawCircle(x, y, r)
	dc.SetFillBrush(brush)
	dc.Fill()
}

// verticalGradient fills the rectangle with a top-to-bottom gradient.
func verticalGradient(dc *gg.Context, x, y, w, h float64, stops ...gg.RGBA) {
	x0, y0 := dc.TransformPoint(x, y)
	x1, y1 := dc.TransformPoint(x, y+h)
	brush := gg.NewLinearGradientBrush(x0, y0, x1, y1)
	for i, c := range stops {
		off := 0.0
		if len(stops) > 1 {
			off = float64(i) / float64(len(stops)-1)
		}
		brush.AddColorStop(off, c)
	}
	dc.DrawRectangle(x, y, w, h)
	dc.SetFillBrush(brush)
	dc.Fill()
}

// hash01 is a deterministic pseudo-random value in [0,1) for index i, used
// where scenes need fixed scattered positions.
func hash01(i int) float64 {
	v := math.Sin(float64(i)*12.9898+78.233) * 43758.5453
	return v - math.Floor(v)
}

// textPath appends s as glyph outlines with its baseline starting at (x, y).
// Unlike DrawString the glyphs follow the current transform.
func textPath(dc *gg.Context, face text.Face, s string, x, y float64) {
	glyphs := text.Shape(s, face)
	font := face.Source().Parsed()
	if len(glyphs) == 0 || font == nil {
		return
	}
	params := text.RenderParams{Transform: text.TranslateTransform(float32(x), float32(y)), Opacity: 1}
	for _, o := range text.NewGlyphRenderer().RenderGlyphs(glyphs, font, face.Size(), params) {
		if o == nil {
			continue
		}
		open := false
		for _, seg := range o.Segments {
			p := seg.Points
			switch seg.Op {
			case text.OutlineOpMoveTo:
				if open {
					dc.ClosePath()
				}
				dc.MoveTo(float64(p[0].X), float64(p[0].Y))
				open = true
			case text.OutlineOpLineTo:
				dc.LineTo(float64(p[0].X), float64(p[0].Y))
			case text.OutlineOpQuadTo:
				dc.QuadraticTo(float64(p[0].X), float64(p[0].Y), float64(p[1].X), float64(p[1].Y))
			case text.OutlineOpCubicTo:
				dc.CubicTo(float64(p[0].X), float64(p[0].Y), float64(p[1].X), float64(p[1].Y), float64(p[2].X), float64(p[2].Y))
			}
		}
		if open {
			dc.ClosePath()
		}
	}
}
