package lens

import (
	"math"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

type sunglassesLens struct{}

func (sunglassesLens) ID() ID       { return Sunglasses }
func (sunglassesLens) Name() string { return "Shades" }

func (sunglassesLens) Render(f Frame, face tracking.Face) {
	dc, s := f.DC, face.FaceScale
	ed := face.EyeDistance
	lw := ed * 0.68
	lh := lw * 0.6

	dc.Push()
	defer dc.Pop()
	dc.Translate(face.Center.X, face.Center.Y+5*s)
	dc.Rotate(face.Roll)

	for _, cx := range []float64{-ed / 2, ed / 2} {
		roundRect(dc, cx-lw/2, -lh/2, lw, lh, lh*0.35)
		fill(dc, rgba(20, 20, 50, 0.55))
		roundRect(dc, cx-lw/2, -lh/2, lw, lh, lh*0.35)
		stroke(dc, rgba(26, 26, 26, 1), 3.5)

		rotatedEllipse(dc, cx-lw*0.22, -lh*0.18, lw*0.1, lh*0.12, -0.4)
		fill(dc, rgba(255, 255, 255, 0.3))
	}

	// Bridge
	dc.MoveTo(-ed/2+lw/2, 0)
	dc.LineTo(ed/2-lw/2, 0)
	stroke(dc, rgba(17, 17, 17, 1), 4*s)

	// Arms
	for _, d := range []float64{-1, 1} {
		bx := d * (ed/2 + lw/2)
		dc.MoveTo(bx, 0)
		dc.LineTo(bx+d*55*s, -8*s)
		stroke(dc, rgba(26, 26, 26, 1), 3.5*s)
	}
}

type crownLens struct{}

func (crownLens) ID() ID       { return HeartCrown }
func (crownLens) Name() string { return "Heart Crown" }

func (crownLens) Render(f Frame, face tracking.Face) {
	dc, s, t := f.DC, face.FaceScale, f.T
	bob := math.Sin(t*2.2) * 4 * s
	w := face.EyeDistance * 1.85
	h := w * 0.58

	dc.Push()
	defer dc.Pop()
	dc.Translate(face.Forehead.X, face.Forehead.Y+bob)
	dc.Rotate(face.Roll)

	x, y := -w/2, -h*1.1

	crownPath := func() {
		dc.MoveTo(x, y+h)
		for i := 0; i <= 4; i++ {
			py := y
			if i%2 == 1 {
				py = y + h*0.52
			}
			dc.LineTo(x+float64(i)/4*w, py)
		}
		dc.LineTo(x+w, y+h)
		dc.ClosePath()
	}

	crownPath()
	verticalGradientFill(dc, x, y, h, gg.Hex("#FFD700"), gg.Hex("#FFA500"), gg.Hex("#FF8C00"))
	crownPath()
	stroke(dc, gg.Hex("#B8860B"), 2.5)

	// Heart jewels along the band
	for i, col := range []string{"#E74C3C", "#9B59B6", "#3498DB", "#E74C3C"} {
		jx := x + float64(i*2+1)/8*w
		jy := y + h*0.3 + math.Sin(t*3+float64(i))*2*s
		heartPath(dc, jx, jy, 7*s)
		fill(dc, gg.Hex(col))
		heartPath(dc, jx, jy, 7*s)
		stroke(dc, rgba(255, 255, 255, 0.55), 1)
	}
}

// verticalGradientFill fills the current path with a gradient running from
// y down to y+h in local coordinates, stops evenly spaced.
func verticalGradientFill(dc *gg.Context, x, y, h float64, stops ...gg.RGBA) {
	x0, y0 := dc.TransformPoint(x, y)
	x1, y1 := dc.TransformPoint(x, y+h)
	brush := gg.NewLinearGradientBrush(x0, y0, x1, y1)
	for i, c := range stops {
		brush.AddColorStop(float64(i)/float64(max(len(stops)-1, 1)), c)
	}
	dc.SetFillBrush(brush)
	dc.Fill()
}

// heartPath appends a heart of half-width r centred on (x, y).
func heartPath(dc *gg.Context, x, y, r float64) {
	dc.MoveTo(x, y+r)
	dc.CubicTo(x-r*1.3, y+r*0.1, x-r*0.9, y-r*1.1, x, y-r*0.35)
	dc.CubicTo(x+r*0.9, y-r*1.1, x+r*1.3, y+r*0.1, x, y+r)
	dc.ClosePath()
}

type astronautLens struct{}

func (astronautLens) ID() ID       { return Astronaut }
func (astronautLens) Name() string { return "Astronaut" }

func (astronautLens) Render(f Frame, face tracking.Face) {
	dc, s, t := f.DC, face.FaceScale, f.T
	r := face.TempleSpan * 0.72

	dc.Push()
	defer dc.Pop()
	dc.Translate(face.Center.X, face.Center.Y)
	dc.Rotate(face.Roll)

	// Helmet shell, lit from the upper left
	cx, cy := dc.TransformPoint(0, 0)
	fx, fy := dc.TransformPoint(-r*0.22, -r*0.22)
	shell := gg.NewRadialGradientBrush(cx, cy, r*0.1, r*1.22).
		SetFocus(fx, fy).
		AddColorStop(0, rgba(210, 210, 240, 0.25)).
		AddColorStop(1, rgba(100, 100, 150, 0.42))
	dc.DrawCircle(0, 0, r*1.18)
	dc.SetFillBrush(shell)
	dc.Fill()
	dc.DrawCircle(0, 0, r*1.18)
	stroke(dc, rgba(200, 200, 255, 0.65), 5*s)

	// Visor glare
	rotatedEllipse(dc, -r*0.3, -r*0.32, r*0.23, r*0.1, -0.5)
	fill(dc, rgba(255, 255, 255, 0.22))

	// Stars drifting across the visor
	for i := 0; i < 6; i++ {
		a := t*0.3 + float64(i)*1.047
		sr := r * (0.45 + float64(i%3)*0.14)
		dc.DrawCircle(math.Cos(a)*sr, math.Sin(a)*sr, 1.8*s)
		fill(dc, rgba(255, 255, 255, 0.55))
	}
}
