package lens

import (
	"math"

	"github.com/gogpu/gg"
)

// Glyph is a small procedural sprite used by particles and decorations.
type Glyph int

// Glyphs
const (
	GlyphSparkle Glyph = iota
	GlyphStar
	GlyphGlowStar
	GlyphComet
	GlyphFlame
	GlyphBurst
	GlyphBlossom
	GlyphPaw
	GlyphCloud
)

// String returns the glyph name.
func (g Glyph) String() string {
	switch g {
	case GlyphSparkle:
		return "sparkle"
	case GlyphStar:
		return "star"
	case GlyphGlowStar:
		return "glow-star"
	case GlyphComet:
		return "comet"
	case GlyphFlame:
		return "flame"
	case GlyphBurst:
		return "burst"
	case GlyphBlossom:
		return "blossom"
	case GlyphPaw:
		return "paw"
	case GlyphCloud:
		return "cloud"
	default:
		return "unknown"
	}
}

var (
	gold      = rgba(255, 214, 64, 1)
	amber     = rgba(245, 159, 0, 1)
	paleGold  = rgba(255, 244, 190, 1)
	flameRed  = rgba(255, 87, 34, 1)
	flameOrng = rgba(255, 152, 0, 1)
	flameCore = rgba(255, 235, 59, 1)
	petalPink = rgba(255, 183, 213, 1)
	petalDeep = rgba(240, 98, 146, 1)
	pawPink   = rgba(255, 158, 181, 1)
	white     = rgba(255, 255, 255, 1)
	cloudGrey = rgba(214, 224, 240, 1)
)

// DrawGlyph draws g centred on (x, y), rotated by angle, roughly size pixels
// across, at the given opacity.
func DrawGlyph(dc *gg.Context, g Glyph, x, y, size, angle, alpha float64) {
	if size <= 0 || alpha <= 0 {
		return
	}
	r := size / 2

	dc.Push()
	defer dc.Pop()
	dc.Translate(x, y)
	dc.Rotate(angle)

	switch g {
	case GlyphSparkle:
		starPath(dc, 0, 0, 4, r, r*0.28)
		fill(dc, fade(gold, alpha))
		starPath(dc, r*0.62, -r*0.62, 4, r*0.34, r*0.1)
		fill(dc, fade(paleGold, alpha))

	case GlyphStar:
		starPath(dc, 0, 0, 5, r, r*0.45)
		fill(dc, fade(gold, alpha))
		starPath(dc, 0, 0, 5, r, r*0.45)
		stroke(dc, fade(amber, alpha), math.Max(1, r*0.08))

	case GlyphGlowStar:
		radialGlow(dc, 0, 0, r*1.2, fade(paleGold, alpha*0.8), fade(paleGold, 0))
		starPath(dc, 0, 0, 5, r*0.85, r*0.38)
		fill(dc, fade(gold, alpha))

	case GlyphComet:
		dc.SetLineCap(gg.LineCapRound)
		for i := 0; i < 3; i++ {
			rr := r * (0.5 + 0.22*float64(i))
			arcTo(dc, 0, 0, rr, math.Pi*0.6, math.Pi*1.25, true)
			stroke(dc, fade(paleGold, alpha*(0.9-0.25*float64(i))), math.Max(1, r*0.1))
		}
		starPath(dc, r*0.45, -r*0.2, 5, r*0.5, r*0.22)
		fill(dc, fade(gold, alpha))

	case GlyphFlame:
		flamePath(dc, 0, 0, r)
		fill(dc, fade(flameRed, alpha))
		flamePath(dc, 0, r*0.22, r*0.68)
		fill(dc, fade(flameOrng, alpha))
		flamePath(dc, 0, r*0.45, r*0.36)
		fill(dc, fade(flameCore, alpha))

	case GlyphBurst:
		starPath(dc, 0, 0, 8, r, r*0.5)
		fill(dc, fade(flameRed, alpha))
		starPath(dc, 0, 0, 8, r*0.66, r*0.34)
		fill(dc, fade(flameCore, alpha))

	case GlyphBlossom:
		for i := 0; i < 5; i++ {
			a := float64(i) * 2 * math.Pi / 5
			rotatedEllipse(dc, math.Cos(a-math.Pi/2)*r*0.5, math.Sin(a-math.Pi/2)*r*0.5,
				r*0.42, r*0.3, a-math.Pi/2)
			fill(dc, fade(petalPink, alpha))
		}
		dc.DrawCircle(0, 0, r*0.22)
		fill(dc, fade(petalDeep, alpha))

	case GlyphPaw:
		dc.DrawEllipse(0, r*0.28, r*0.46, r*0.38)
		fill(dc, fade(pawPink, alpha))
		for i, dx := range []float64{-0.62, -0.22, 0.22, 0.62} {
			dy := -0.32
			if i == 0 || i == 3 {
				dy = -0.02
			}
			dc.DrawEllipse(dx*r, dy*r-r*0.15, r*0.17, r*0.22)
			fill(dc, fade(pawPink, alpha))
		}

	case GlyphCloud:
		dc.DrawEllipse(0, r*0.22, r*0.95, r*0.42)
		fill(dc, fade(cloudGrey, alpha))
		for _, c := range [][3]float64{{-0.45, 0.05, 0.38}, {0.05, -0.18, 0.5}, {0.5, 0.05, 0.34}} {
			dc.DrawCircle(c[0]*r, c[1]*r, c[2]*r)
			fill(dc, fade(white, alpha))
		}
	}
}

// flamePath appends a teardrop flame with its tip at (x, y-r).
func flamePath(dc *gg.Context, x, y, r float64) {
	dc.MoveTo(x, y-r)
	dc.QuadraticTo(x+r*0.9, y-r*0.1, x+r*0.55, y+r*0.45)
	dc.QuadraticTo(x+r*0.3, y+r*0.75, x, y+r*0.75)
	dc.QuadraticTo(x-r*0.3, y+r*0.75, x-r*0.55, y+r*0.45)
	dc.QuadraticTo(x-r*0.9, y-r*0.1, x, y-r)
	dc.ClosePath()
}
