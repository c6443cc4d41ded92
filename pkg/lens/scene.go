package lens

import (
	"math"

	"github.com/gogpu/gg"
)

// Scenes are pure functions of (t, width, height). Scattered elements take
// their positions from hash01 so every call with the same arguments draws
// the same frame.

type beachScene struct{}

func (beachScene) ID() ID       { return Beach }
func (beachScene) Name() string { return "Beach" }

func (beachScene) Paint(dc *gg.Context, t float64, width, height int) {
	w, h := float64(width), float64(height)
	horizon := h * 0.55

	verticalGradient(dc, 0, 0, w, horizon, gg.Hex("#4FC3F7"), gg.Hex("#B3E5FC"), gg.Hex("#FFF3E0"))

	// Sun
	sx, sy := w*0.78, horizon*0.35+math.Sin(t*0.5)*4
	radialGlow(dc, sx, sy, h*0.18, rgba(255, 236, 179, 0.9), rgba(255, 236, 179, 0))
	dc.DrawCircle(sx, sy, h*0.07)
	fill(dc, gg.Hex("#FFD54F"))

	// Drifting clouds
	for i := 0; i < 3; i++ {
		span := w + 240
		x := math.Mod(t*(12+float64(i)*6)+hash01(i)*span, span) - 120
		y := horizon * (0.18 + 0.16*float64(i))
		DrawGlyph(dc, GlyphCloud, x, y, h*(0.16-0.03*float64(i)), 0, 0.9)
	}

	// Sea
	verticalGradient(dc, 0, horizon, w, h*0.2, gg.Hex("#0288D1"), gg.Hex("#4DD0E1"))
	dc.SetLineCap(gg.LineCapRound)
	for row := 0; row < 4; row++ {
		y := horizon + h*0.03 + float64(row)*h*0.04
		for x := 0.0; x <= w; x += 8 {
			wy := y + math.Sin(x/w*12+t*2+float64(row))*h*0.006
			if x == 0 {
				dc.MoveTo(x, wy)
			} else {
				dc.LineTo(x, wy)
			}
		}
		stroke(dc, rgba(255, 255, 255, 0.35), 2)
	}

	// Sand with a foam line that washes in and out
	shore := horizon + h*0.2 + math.Sin(t*1.2)*h*0.01
	verticalGradient(dc, 0, shore, w, h-shore, gg.Hex("#FFE0B2"), gg.Hex("#FFCC80"))
	for x := 0.0; x <= w; x += 8 {
		y := shore + math.Sin(x/w*18+t*1.2)*h*0.006
		if x == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	stroke(dc, rgba(255, 255, 255, 0.7), 3)
}

type cityScene struct{}

func (cityScene) ID() ID       { return City }
func (cityScene) Name() string { return "City Night" }

func (cityScene) Paint(dc *gg.Context, t float64, width, height int) {
	w, h := float64(width), float64(height)

	verticalGradient(dc, 0, 0, w, h, gg.Hex("#0D1B2A"), gg.Hex("#1B263B"), gg.Hex("#415A77"))

	// Moon
	radialGlow(dc, w*0.15, h*0.16, h*0.12, rgba(255, 255, 230, 0.5), rgba(255, 255, 230, 0))
	dc.DrawCircle(w*0.15, h*0.16, h*0.05)
	fill(dc, gg.Hex("#FFFDE7"))

	// Skyline
	const buildings = 14
	bw := w / buildings
	for i := 0; i < buildings; i++ {
		bh := h * (0.25 + 0.45*hash01(i+7))
		x := float64(i) * bw
		y := h - bh
		dc.DrawRectangle(x+1, y, bw-2, bh)
		fill(dc, rgba(20, 28, 44, 1))

		// Windows blink on a slow cycle
		cols := 3
		rows := int(bh / (h * 0.05))
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				k := i*97 + r*13 + c
				lit := hash01(k+int(t*0.5)*7919) > 0.45
				if !lit {
					continue
				}
				wx := x + bw*0.15 + float64(c)*bw*0.27
				wy := y + h*0.015 + float64(r)*h*0.05
				dc.DrawRectangle(wx, wy, bw*0.16, h*0.025)
				fill(dc, rgba(255, 213, 79, 0.55+0.35*hash01(k)))
			}
		}
	}

	// A light trail along the street
	lx := math.Mod(t*w*0.25, w*1.4) - w*0.2
	radialGlow(dc, lx, h*0.97, h*0.04, rgba(255, 82, 82, 0.9), rgba(255, 82, 82, 0))
}

type spaceScene struct{}

func (spaceScene) ID() ID       { return Space }
func (spaceScene) Name() string { return "Deep Space" }

func (spaceScene) Paint(dc *gg.Context, t float64, width, height int) {
	w, h := float64(width), float64(height)

	verticalGradient(dc, 0, 0, w, h, gg.Hex("#000010"), gg.Hex("#0B0033"), gg.Hex("#1A0040"))

	// Nebulae
	radialGlow(dc, w*0.25, h*0.35, h*0.4, rgba(156, 39, 176, 0.28), rgba(156, 39, 176, 0))
	radialGlow(dc, w*0.8, h*0.7, h*0.35, rgba(0, 188, 212, 0.22), rgba(0, 188, 212, 0))

	// Twinkling stars
	for i := 0; i < 90; i++ {
		x := hash01(i) * w
		y := hash01(i+1000) * h
		a := 0.4 + 0.6*math.Abs(math.Sin(t*(1+hash01(i+2000)*2)+float64(i)))
		dc.DrawCircle(x, y, 0.6+hash01(i+3000)*1.4)
		fill(dc, rgba(255, 255, 255, a))
	}

	// Ringed planet
	px, py, pr := w*0.72, h*0.28, h*0.11
	radialGlow(dc, px, py, pr*1.6, rgba(255, 171, 64, 0.25), rgba(255, 171, 64, 0))
	dc.DrawCircle(px, py, pr)
	fill(dc, gg.Hex("#FF8A65"))
	rotatedEllipse(dc, px, py, pr*1.8, pr*0.35, -0.35)
	stroke(dc, rgba(255, 224, 178, 0.8), math.Max(2, pr*0.08))

	// Comet crossing every few seconds
	cx := math.Mod(t*w*0.12, w*1.5) - w*0.25
	cy := h*0.15 + cx*0.25
	DrawGlyph(dc, GlyphComet, cx, cy, h*0.06, 0.4, 0.9)
}

type forestScene struct{}

func (forestScene) ID() ID       { return Forest }
func (forestScene) Name() string { return "Enchanted Forest" }

func (forestScene) Paint(dc *gg.Context, t float64, width, height int) {
	w, h := float64(width), float64(height)

	verticalGradient(dc, 0, 0, w, h, gg.Hex("#A5D6A7"), gg.Hex("#2E7D32"), gg.Hex("#1B5E20"))

	// Light shafts
	for i := 0; i < 4; i++ {
		x := w * (0.2 + 0.2*float64(i))
		sway := math.Sin(t*0.6+float64(i)) * w * 0.02
		dc.MoveTo(x-w*0.03, 0)
		dc.LineTo(x+w*0.03, 0)
		dc.LineTo(x+w*0.1+sway, h)
		dc.LineTo(x+w*0.02+sway, h)
		dc.ClosePath()
		fill(dc, rgba(255, 255, 220, 0.08))
	}

	// Two layers of pines, the far layer paler
	for layer := 0; layer < 2; layer++ {
		n := 9 + layer*3
		base := h * (0.82 + 0.12*float64(layer))
		col := rgba(27, 94, 32, 0.55)
		if layer == 1 {
			col = rgba(13, 58, 18, 0.95)
		}
		for i := 0; i < n; i++ {
			x := (float64(i) + 0.5*hash01(i+layer*50)) * w / float64(n-1)
			th := h * (0.35 + 0.25*hash01(i+layer*50+17))
			tw := th * 0.36
			sway := math.Sin(t*0.8+float64(i)*0.7) * tw * 0.05
			dc.MoveTo(x+sway, base-th)
			dc.LineTo(x+tw/2, base)
			dc.LineTo(x-tw/2, base)
			dc.ClosePath()
			fill(dc, col)
		}
	}

	// Fireflies
	for i := 0; i < 14; i++ {
		x := w*hash01(i+400) + math.Sin(t*0.9+float64(i))*w*0.03
		y := h*(0.35+0.5*hash01(i+500)) + math.Cos(t*0.7+float64(i)*1.3)*h*0.03
		a := 0.35 + 0.65*math.Abs(math.Sin(t*2+float64(i)))
		radialGlow(dc, x, y, h*0.02, rgba(255, 241, 118, a), rgba(255, 241, 118, 0))
	}
}

type neonScene struct{}

func (neonScene) ID() ID       { return Neon }
func (neonScene) Name() string { return "Neon Grid" }

func (neonScene) Paint(dc *gg.Context, t float64, width, height int) {
	w, h := float64(width), float64(height)
	horizon := h * 0.55

	verticalGradient(dc, 0, 0, w, horizon, gg.Hex("#12002B"), gg.Hex("#3D0066"), gg.Hex("#FF2E97"))
	dc.DrawRectangle(0, horizon, w, h-horizon)
	fill(dc, gg.Hex("#0A0014"))

	// Striped sun sitting on the horizon
	sx, sr := w/2, h*0.2
	radialGlow(dc, sx, horizon, sr*1.5, rgba(255, 110, 199, 0.5), rgba(255, 110, 199, 0))
	arcTo(dc, sx, horizon, sr, math.Pi, 2*math.Pi, true)
	dc.ClosePath()
	verticalGradientFill(dc, sx-sr, horizon-sr, sr, gg.Hex("#FFE66D"), gg.Hex("#FF6EC7"))
	for i := 0; i < 5; i++ {
		y := horizon - sr*0.1 - float64(i)*sr*0.16
		dc.DrawRectangle(sx-sr, y, sr*2, sr*0.05*float64(5-i)/3)
		fill(dc, gg.Hex("#3D0066"))
	}

	// Scrolling perspective grid
	grid := rgba(0, 255, 255, 0.75)
	for i := -10; i <= 10; i++ {
		dc.MoveTo(w/2+float64(i)*w*0.02, horizon)
		dc.LineTo(w/2+float64(i)*w*0.16, h)
		stroke(dc, grid, 1.5)
	}
	phase := math.Mod(t*0.8, 1)
	for i := 0; i < 8; i++ {
		d := (float64(i) + phase) / 8
		y := horizon + (h-horizon)*d*d
		dc.MoveTo(0, y)
		dc.LineTo(w, y)
		stroke(dc, fade(grid, 0.3+0.7*d), 1.5)
	}
}
