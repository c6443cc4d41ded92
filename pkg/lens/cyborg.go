package lens

import (
	"fmt"
	"math"

	"github.com/gogpu/gg"
	"github.com/teslashibe/go-lens/pkg/landmark"
	"github.com/teslashibe/go-lens/pkg/tracking"
)

type cyborgLens struct{}

func (cyborgLens) ID() ID       { return Cyborg }
func (cyborgLens) Name() string { return "Cyborg" }

func (cyborgLens) Render(f Frame, face tracking.Face) {
	dc, s, t := f.DC, face.FaceScale, f.T
	c := face.Center
	brow := -landmark.Distance(c, face.Forehead)
	teal := func(a float64) gg.RGBA { return rgba(0, 255, 200, a) }

	// Rotating eye reticles
	for i, eye := range []landmark.Point{face.LeftEye, face.RightEye} {
		dc.Push()
		dc.Translate(eye.X, eye.Y)
		dc.Rotate(t*1.6 + float64(i)*math.Pi)
		for q := 0; q < 4; q++ {
			a := float64(q) / 4 * 2 * math.Pi
			arcTo(dc, 0, 0, 22*s, a+0.2, a+math.Pi/2-0.2, true)
			stroke(dc, teal(0.9), 2)
		}
		dc.DrawCircle(0, 0, 3*s)
		fill(dc, teal(1))
		dc.Pop()
	}

	// Scan line, outline and HUD share the face's frame
	dc.Push()
	defer dc.Pop()
	dc.Translate(c.X, c.Y)
	dc.Rotate(face.Roll)

	// Scan line sweeping down from the forehead
	scanY := brow + math.Mod(t*120*s, 220*s)
	dc.DrawRectangle(-110*s, scanY, 220*s, 3)
	fill(dc, teal(0.12+0.06*math.Sin(t*10)))

	// Dashed face outline
	dc.SetDash(4, 7)
	dc.DrawCircle(0, 0, 105*s)
	stroke(dc, teal(0.22+0.1*math.Sin(t*5)), 1)
	dc.ClearDash()

	// HUD readout above the brow
	if f.Font == nil {
		return
	}
	hud := f.Font.Face(math.Max(10*s, 6))
	lock := int(math.Mod(t*37, 100))
	textPath(dc, hud, fmt.Sprintf("FACE LOCK: 99.%02d%%", lock), -90*s, brow-28*s)
	textPath(dc, hud, "NEURAL: ACTIVE", -90*s, brow-14*s)
	fill(dc, teal(0.8+0.2*math.Sin(t*2)))
}
