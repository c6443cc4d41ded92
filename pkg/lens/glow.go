package lens

import (
	"math"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/pkg/landmark"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

var sparkleGlyphs = []Glyph{GlyphSparkle, GlyphComet, GlyphStar, GlyphGlowStar}

type sparklesLens struct{}

func (sparklesLens) ID() ID       { return Sparkles }
func (sparklesLens) Name() string { return "Sparkles" }

func (sparklesLens) Render(f Frame, face tracking.Face) {
	dc, s, t := f.DC, face.FaceScale, f.T
	c := face.Center

	// Scatter particles in a ring around the face
	if f.Rand.Float64() < 0.4 {
		a := f.Rand.Float64() * 2 * math.Pi
		r := (80 + f.Rand.Float64()*80) * s
		f.Particles.Emit(c.X+math.Cos(a)*r, c.Y+math.Sin(a)*r, 1, Emitter{
			Glyph: sparkleGlyphs[f.Rand.IntN(len(sparkleGlyphs))],
			Size:  18 * s,
			Speed: 2,
			Rise:  0.8,
		})
	}

	// Six glyphs orbit on a flattened ellipse tilted with the head
	for i := 0; i < 6; i++ {
		a := t*1.6 + float64(i)*(math.Pi/3)
		r := 110 * s
		lx, ly := math.Cos(a)*r, math.Sin(a)*r*0.38
		x := c.X + lx*math.Cos(face.Roll) - ly*math.Sin(face.Roll)
		y := c.Y + lx*math.Sin(face.Roll) + ly*math.Cos(face.Roll)
		alpha := 0.65 + 0.35*math.Sin(t*3+float64(i))
		DrawGlyph(dc, sparkleGlyphs[i%4], x, y, 26*s, face.Roll, alpha)
	}
}

type beautyLens struct{}

func (beautyLens) ID() ID       { return Beauty }
func (beautyLens) Name() string { return "Glow" }

func (beautyLens) Render(f Frame, face tracking.Face) {
	dc, s, t := f.DC, face.FaceScale, f.T

	// Soft skin glow
	radialGlow(dc, face.Center.X, face.Center.Y, 200*s,
		rgba(255, 200, 200, 0.18), rgba(255, 182, 193, 0))

	// Eye shimmer
	for i, eye := range []landmark.Point{face.LeftEye, face.RightEye} {
		a := 0.28 + 0.1*math.Sin(t*4+float64(i))
		radialGlow(dc, eye.X, eye.Y, 28*s, rgba(255, 150, 200, a), rgba(255, 150, 200, 0))
	}

	// Cheek blossoms
	alpha := 0.75 + 0.25*math.Sin(t*1.5)
	DrawGlyph(dc, GlyphBlossom, face.LeftEye.X-28*s, face.LeftEye.Y+24*s, 22*s, face.Roll, alpha)
	DrawGlyph(dc, GlyphBlossom, face.RightEye.X+28*s, face.RightEye.Y+24*s, 22*s, face.Roll, alpha)
}

var rainbowBands = []string{"#FF0000", "#FF7700", "#FFFF00", "#00CC00", "#0077FF", "#8800FF"}

type rainbowLens struct{}

func (rainbowLens) ID() ID       { return Rainbow }
func (rainbowLens) Name() string { return "Rainbow" }

func (rainbowLens) Render(f Frame, face tracking.Face) {
	dc, s, t := f.DC, face.FaceScale, f.T
	outer := face.EyeDistance * 1.3
	inner := outer * 0.62
	bw := (outer - inner) / float64(len(rainbowBands))

	dc.Push()
	dc.Translate(face.Forehead.X, face.Forehead.Y+15*s)
	dc.Rotate(face.Roll)
	for i, col := range rainbowBands {
		r1 := inner + float64(i)*bw
		r2 := r1 + bw
		pulse := 1 + 0.025*math.Sin(t*3+float64(i)*0.5)
		arcTo(dc, 0, 0, r2*pulse, math.Pi, 2*math.Pi, true)
		arcTo(dc, 0, 0, r1*pulse, 2*math.Pi, math.Pi, false)
		dc.ClosePath()
		fill(dc, fade(gg.Hex(col), 0.72))
	}
	dc.Pop()

	// Clouds anchor both ends of the arc
	DrawGlyph(dc, GlyphCloud, face.LeftTemple.X-18*s, face.LeftTemple.Y-55*s, 36*s, face.Roll, 1)
	DrawGlyph(dc, GlyphCloud, face.RightTemple.X+18*s, face.RightTemple.Y-55*s, 36*s, face.Roll, 1)
}

var fireGlyphs = []Glyph{GlyphFlame, GlyphBurst, GlyphSparkle}

type fireLens struct{}

func (fireLens) ID() ID       { return Fire }
func (fireLens) Name() string { return "On Fire" }

func (fireLens) Render(f Frame, face tracking.Face) {
	dc, s, t := f.DC, face.FaceScale, f.T

	// Flames rise from the hairline between the temples
	if f.Rand.Float64() < 0.7 {
		u := f.Rand.Float64()
		x := face.LeftTemple.X + u*(face.RightTemple.X-face.LeftTemple.X)
		y := face.LeftTemple.Y + u*(face.RightTemple.Y-face.LeftTemple.Y)
		// Lift the temple line up to the forehead
		y += face.Forehead.Y - (face.LeftTemple.Y+face.RightTemple.Y)/2
		f.Particles.Emit(x, y, 1, Emitter{
			Glyph: fireGlyphs[f.Rand.IntN(len(fireGlyphs))],
			Size:  (22 + f.Rand.Float64()*14) * s,
			Speed: 2.5,
			Rise:  2.5,
		})
	}

	// Warm glow, hottest just above the face centre
	c := face.Center
	a := 0.1 + 0.06*math.Sin(t*8)
	glow := gg.NewRadialGradientBrush(c.X, c.Y, 0, 130*s).
		SetFocus(c.X, c.Y-15*s).
		AddColorStop(0, rgba(255, 80, 0, a)).
		AddColorStop(1, rgba(255, 40, 0, 0))
	dc.DrawCircle(c.X, c.Y, 130*s)
	dc.SetFillBrush(glow)
	dc.Fill()
}
